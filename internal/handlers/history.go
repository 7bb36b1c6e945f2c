package handlers

//go:generate mockgen -source=history.go -destination=history_mock.go -package=handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// HistoryReader defines the interface that the engine must implement.
type HistoryReader interface {
	History(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error)
}

// HistoryEntry is one record as seen from the queried account
// swagger:model HistoryEntry
type HistoryEntry struct {
	TransactionID int64 `json:"transaction_id"`

	// DEPOSIT, WITHDRAWAL or TRANSFER
	Kind models.Kind `json:"kind"`

	// SUCCESS or FAILED
	Outcome models.Outcome `json:"outcome"`

	// SENT or RECEIVED
	Direction models.Direction `json:"direction"`

	// Other side of a transfer
	CounterpartyAccount *int64 `json:"counterparty_account,omitempty"`

	// default: 10.00
	Amount string `json:"amount"`

	FailureReason *string   `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryResponse lists records newest first
// swagger:model HistoryResponse
type HistoryResponse struct {
	AccountID    int64          `json:"account_id"`
	Transactions []HistoryEntry `json:"transactions"`
}

// NewHistoryHandler returns an HTTP handler listing the account's transaction history.
// @Summary Transaction history
// @Description Returns successful and failed records naming the account, newest first.
// @Tags ledger
// @Produce json
// @Param accountID path int true "Account ID"
// @Param limit query int false "Maximum number of records (default 50, max 500)"
// @Success 200 {object} handlers.HistoryResponse "History"
// @Failure 400 {object} handlers.ErrorResponse "Invalid account id or limit"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 503 {object} handlers.ErrorResponse "Storage failure"
// @Router /accounts/{accountID}/transactions [get]
// @Security BearerAuth
func NewHistoryHandler(engine HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := accountIDFromRequest(r)
		if !ok {
			writeBadAccountID(w)
			return
		}

		var limit int
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
				return
			}
			limit = n
		}

		txns, err := engine.History(r.Context(), accountID, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := HistoryResponse{
			AccountID:    accountID,
			Transactions: make([]HistoryEntry, 0, len(txns)),
		}
		for _, txn := range txns {
			resp.Transactions = append(resp.Transactions, toHistoryEntry(accountID, txn))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func toHistoryEntry(accountID int64, txn models.Transaction) HistoryEntry {
	entry := HistoryEntry{
		TransactionID: txn.ID,
		Kind:          txn.Kind,
		Outcome:       txn.Outcome,
		Direction:     txn.DirectionFor(accountID),
		Amount:        txn.Amount.StringFixed(2),
		FailureReason: txn.FailureReason,
		CreatedAt:     txn.CreatedAt,
	}
	if txn.Kind == models.KindTransfer {
		if entry.Direction == models.DirectionSent {
			entry.CounterpartyAccount = txn.ReceiverID
		} else {
			entry.CounterpartyAccount = txn.SenderID
		}
	}
	return entry
}
