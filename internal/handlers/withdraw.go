package handlers

//go:generate mockgen -source=withdraw.go -destination=withdraw_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Withdrawer defines the interface that the engine must implement.
type Withdrawer interface {
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Result, error)
}

// NewWithdrawHandler returns an HTTP handler for withdrawing funds from an account.
// @Summary Withdraw funds
// @Description Debits the account if its balance covers the amount.
// @Tags ledger
// @Accept json
// @Produce json
// @Param accountID path int true "Account ID"
// @Param request body handlers.AmountRequest true "Withdraw Request"
// @Success 200 {object} handlers.OperationResponse "Withdrawal committed"
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "Account not found"
// @Failure 409 {object} handlers.ErrorResponse "Insufficient funds"
// @Failure 503 {object} handlers.ErrorResponse "Lock timeout or storage failure"
// @Router /accounts/{accountID}/withdraw [post]
// @Security BearerAuth
func NewWithdrawHandler(engine Withdrawer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := accountIDFromRequest(r)
		if !ok {
			writeBadAccountID(w)
			return
		}

		var req AmountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode withdraw request", "error", err)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}

		res, err := engine.Withdraw(r.Context(), accountID, req.Amount)
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
