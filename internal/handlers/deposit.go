package handlers

//go:generate mockgen -source=deposit.go -destination=deposit_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Depositor defines the interface that the engine must implement.
type Depositor interface {
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Result, error)
}

// AmountRequest represents the JSON body for depositing or withdrawing funds
// swagger:model AmountRequest
type AmountRequest struct {
	// Amount, positive with at most two fractional digits
	// required: true
	// default: 100.00
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// OperationResponse represents a committed ledger operation
// swagger:model OperationResponse
type OperationResponse struct {
	// Account the operation was requested on
	AccountID int64 `json:"account_id"`

	// New balance of that account
	// default: 100.00
	Balance string `json:"balance"`

	// Identifier of the SUCCESS record
	TransactionID int64 `json:"transaction_id"`
}

// NewDepositHandler returns an HTTP handler for depositing funds into an account.
// @Summary Deposit funds
// @Description Credits the account. Every attempt is recorded in the transaction log.
// @Tags ledger
// @Accept json
// @Produce json
// @Param accountID path int true "Account ID"
// @Param request body handlers.AmountRequest true "Deposit Request"
// @Success 200 {object} handlers.OperationResponse "Deposit committed"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "Account not found"
// @Failure 503 {object} handlers.ErrorResponse "Lock timeout or storage failure"
// @Router /accounts/{accountID}/deposit [post]
// @Security BearerAuth
func NewDepositHandler(engine Depositor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := accountIDFromRequest(r)
		if !ok {
			writeBadAccountID(w)
			return
		}

		var req AmountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode deposit request", "error", err)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}

		res, err := engine.Deposit(r.Context(), accountID, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, OperationResponse{
			AccountID:     accountID,
			Balance:       res.Balance.StringFixed(2),
			TransactionID: res.Transaction.ID,
		})
	}
}
