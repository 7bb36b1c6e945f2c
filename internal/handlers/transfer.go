package handlers

//go:generate mockgen -source=transfer.go -destination=transfer_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Transferer defines the interface that the engine must implement.
type Transferer interface {
	Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal) (models.Result, error)
}

// TransferRequest represents the JSON body for moving funds between accounts
// swagger:model TransferRequest
type TransferRequest struct {
	// Receiving account
	// required: true
	ToAccountID int64 `json:"to_account_id"`

	// Amount, positive with at most two fractional digits
	// required: true
	// default: 10.00
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// NewTransferHandler returns an HTTP handler for transferring funds to another account.
// The response carries the sender's new balance.
// @Summary Transfer funds
// @Description Moves funds from the path account to to_account_id atomically.
// @Tags ledger
// @Accept json
// @Produce json
// @Param accountID path int true "Sender account ID"
// @Param request body handlers.TransferRequest true "Transfer Request"
// @Success 200 {object} handlers.OperationResponse "Transfer committed"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount or self transfer"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "Sender or receiver not found"
// @Failure 409 {object} handlers.ErrorResponse "Insufficient funds"
// @Failure 503 {object} handlers.ErrorResponse "Lock timeout or storage failure"
// @Router /accounts/{accountID}/transfer [post]
// @Security BearerAuth
func NewTransferHandler(engine Transferer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID, ok := accountIDFromRequest(r)
		if !ok {
			writeBadAccountID(w)
			return
		}

		var req TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode transfer request", "error", err)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}

		res, err := engine.Transfer(r.Context(), senderID, req.ToAccountID, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, OperationResponse{
			AccountID:     senderID,
			Balance:       res.Balance.StringFixed(2),
			TransactionID: res.Transaction.ID,
		})
	}
}
