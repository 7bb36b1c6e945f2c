package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// OperationOutput is the result of a successful deposit, withdrawal or transfer.
type OperationOutput struct {
	TransactionID int64       `json:"transaction_id"`
	Kind          models.Kind `json:"kind"`
	AccountID     int64       `json:"account_id"`
	Amount        string      `json:"amount"`
	Balance       string      `json:"balance"`
}

func printOperation(cmd *cobra.Command, rootOpts *RootOptions, accountID int64, res models.Result) error {
	out := OperationOutput{
		TransactionID: res.Transaction.ID,
		Kind:          res.Transaction.Kind,
		AccountID:     accountID,
		Amount:        res.Transaction.Amount.StringFixed(models.MoneyScale),
		Balance:       res.Balance.StringFixed(models.MoneyScale),
	}
	return printer{rootOpts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
		fmt.Fprintf(w, "%s %d of %s succeeded; account %d balance: %s\n",
			out.Kind, out.TransactionID, out.Amount, out.AccountID, out.Balance)
	})
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "deposit <account-id> <amount>",
		Short:         "Credit an account",
		Example:       `  ledgerctl deposit 1 25.00`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID("account id", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Engine.Deposit(cmd.Context(), id, amount)
			if err != nil {
				return ledgerError("deposit failed", err)
			}
			return printOperation(cmd, rootOpts, id, res)
		},
	}
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "withdraw <account-id> <amount>",
		Short:         "Debit an account",
		Example:       `  ledgerctl withdraw 1 10`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID("account id", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Engine.Withdraw(cmd.Context(), id, amount)
			if err != nil {
				return ledgerError("withdrawal failed", err)
			}
			return printOperation(cmd, rootOpts, id, res)
		},
	}
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "transfer <from-account-id> <to-account-id> <amount>",
		Short:         "Move funds between two accounts",
		Example:       `  ledgerctl transfer 1 2 40`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseAccountID("sender account id", args[0])
			if err != nil {
				return err
			}
			to, err := parseAccountID("receiver account id", args[1])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Engine.Transfer(cmd.Context(), from, to, amount)
			if err != nil {
				return ledgerError("transfer failed", err)
			}
			return printOperation(cmd, rootOpts, from, res)
		},
	}
}
