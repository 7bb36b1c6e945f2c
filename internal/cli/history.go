package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// HistoryEntry is one record as seen from the queried account.
type HistoryEntry struct {
	TransactionID int64            `json:"transaction_id"`
	Kind          models.Kind      `json:"kind"`
	Outcome       models.Outcome   `json:"outcome"`
	Direction     models.Direction `json:"direction"`
	Counterparty  *int64           `json:"counterparty,omitempty"`
	Amount        string           `json:"amount"`
	FailureReason *string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// HistoryOutput is the result of the history command.
type HistoryOutput struct {
	AccountID    int64          `json:"account_id"`
	Transactions []HistoryEntry `json:"transactions"`
}

func newHistoryEntry(accountID int64, txn models.Transaction) HistoryEntry {
	e := HistoryEntry{
		TransactionID: txn.ID,
		Kind:          txn.Kind,
		Outcome:       txn.Outcome,
		Direction:     txn.DirectionFor(accountID),
		Amount:        txn.Amount.StringFixed(models.MoneyScale),
		FailureReason: txn.FailureReason,
		CreatedAt:     txn.CreatedAt,
	}
	if e.Direction == models.DirectionSent {
		e.Counterparty = txn.ReceiverID
	} else {
		e.Counterparty = txn.SenderID
	}
	return e
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "List the most recent records naming an account, newest first",
		Example: `  ledgerctl history 1
  ledgerctl history 1 --limit 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID("account id", args[0])
			if err != nil {
				return err
			}
			if limit < 0 {
				return NewExitError(ExitUsage, "--limit must not be negative")
			}

			a, err := rootOpts.App(cmd.Context())
			if err != nil {
				return err
			}
			out := HistoryOutput{AccountID: id, Transactions: []HistoryEntry{}}
			for txn, err := range a.Engine.HistorySeq(cmd.Context(), id, limit) {
				if err != nil {
					return ledgerError("failed to read history", err)
				}
				out.Transactions = append(out.Transactions, newHistoryEntry(id, txn))
			}
			return printer{rootOpts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				printHistoryText(w, out)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 uses the configured default)")

	return cmd
}

func printHistoryText(w io.Writer, out HistoryOutput) {
	if len(out.Transactions) == 0 {
		fmt.Fprintf(w, "No transactions for account %d\n", out.AccountID)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tOUTCOME\tDIRECTION\tCOUNTERPARTY\tAMOUNT\tCREATED\tREASON")
	for _, e := range out.Transactions {
		counterparty := "-"
		if e.Counterparty != nil {
			counterparty = fmt.Sprint(*e.Counterparty)
		}
		reason := ""
		if e.FailureReason != nil {
			reason = *e.FailureReason
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.TransactionID, e.Kind, e.Outcome, e.Direction, counterparty, e.Amount,
			e.CreatedAt.Format(time.RFC3339), reason)
	}
	_ = tw.Flush()
}
