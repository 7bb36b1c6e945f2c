package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// AccountOutput is the result of the account commands.
type AccountOutput struct {
	AccountID int64  `json:"account_id"`
	UserID    int64  `json:"user_id,omitempty"`
	Balance   string `json:"balance"`
}

// NewAccountCommand creates the account command group.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create accounts and read balances",
	}
	cmd.AddCommand(newAccountCreateCommand(rootOpts))
	cmd.AddCommand(newAccountBalanceCommand(rootOpts))
	return cmd
}

func newAccountCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID  int64
		initial string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an account for a user",
		Example: `  ledgerctl account create --user 7
  ledgerctl account create --user 7 --initial 100.50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return NewExitError(ExitUsage, "--user must be a positive integer")
			}
			balance, err := decimal.NewFromString(initial)
			if err != nil || balance.IsNegative() || !balance.Equal(balance.Truncate(models.MoneyScale)) {
				return NewExitError(ExitUsage, fmt.Sprintf("invalid initial balance %q", initial))
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			id, err := a.Accounts.CreateAccount(cmd.Context(), userID, balance)
			if err != nil {
				return ledgerError("failed to create account", err)
			}

			out := AccountOutput{AccountID: id, UserID: userID, Balance: balance.StringFixed(models.MoneyScale)}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "Created account %d for user %d with balance %s\n", out.AccountID, out.UserID, out.Balance)
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "owning user id (required)")
	cmd.Flags().StringVar(&initial, "initial", "0", "initial balance")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newAccountBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <account-id>",
		Short:         "Print the current balance of an account",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID("account id", args[0])
			if err != nil {
				return err
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			balance, err := a.Accounts.GetBalance(cmd.Context(), id)
			if err != nil {
				return ledgerError("failed to get balance", err)
			}

			out := AccountOutput{AccountID: id, Balance: balance.StringFixed(models.MoneyScale)}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "Account %d balance: %s\n", out.AccountID, out.Balance)
			})
		},
	}
}
