package handlers

//go:generate mockgen -source=balance.go -destination=balance_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// BalanceGetter defines the interface that the service must implement.
type BalanceGetter interface {
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

// NewGetBalanceHandler returns an HTTP handler for fetching an account balance.
// The value is for display and may lag a concurrent mutation.
// @Summary Get account balance
// @Description Returns the display balance of an account owned by the caller
// @Tags accounts
// @Produce json
// @Param accountID path int true "Account ID"
// @Success 200 {object} handlers.AccountResponse "Account balance"
// @Failure 400 {object} handlers.ErrorResponse "Invalid account id"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 404 {object} handlers.ErrorResponse "Account not found"
// @Failure 503 {object} handlers.ErrorResponse "Storage failure"
// @Router /accounts/{accountID}/balance [get]
// @Security BearerAuth
func NewGetBalanceHandler(svc BalanceGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := accountIDFromRequest(r)
		if !ok {
			writeBadAccountID(w)
			return
		}

		balance, err := svc.GetBalance(r.Context(), accountID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AccountResponse{
			AccountID: accountID,
			Balance:   balance.StringFixed(2),
		})
	}
}
