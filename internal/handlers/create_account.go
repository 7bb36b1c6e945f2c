package handlers

//go:generate mockgen -source=create_account.go -destination=create_account_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/middlewares"
	"github.com/shopspring/decimal"
)

// AccountCreator defines the interface that the service must implement.
type AccountCreator interface {
	CreateAccount(ctx context.Context, userID int64, initialBalance decimal.Decimal) (int64, error)
}

// CreateAccountRequest represents the JSON body for opening an account
// swagger:model CreateAccountRequest
type CreateAccountRequest struct {
	// Initial balance, at most two fractional digits
	// default: 0
	InitialBalance decimal.Decimal `json:"initial_balance" swaggertype:"string"`
}

// AccountResponse represents an account and its balance
// swagger:model AccountResponse
type AccountResponse struct {
	// Account identifier
	AccountID int64 `json:"account_id"`

	// Balance with two fractional digits
	// default: 100.00
	Balance string `json:"balance"`
}

// NewCreateAccountHandler returns an HTTP handler that opens an account for the caller.
// @Summary Open account
// @Description Creates an account owned by the authenticated user with a non-negative initial balance.
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body handlers.CreateAccountRequest true "Create Account Request"
// @Success 201 {object} handlers.AccountResponse "Account created"
// @Failure 400 {object} handlers.ErrorResponse "Invalid initial balance"
// @Failure 401 {object} handlers.ErrorResponse "Unauthorized"
// @Failure 503 {object} handlers.ErrorResponse "Storage failure"
// @Router /accounts [post]
// @Security BearerAuth
func NewCreateAccountHandler(svc AccountCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claims, ok := middlewares.ClaimsFromContext(ctx)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
			return
		}

		var req CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode create account request", "error", err)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
			return
		}

		accountID, err := svc.CreateAccount(ctx, claims.UserID, req.InitialBalance)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AccountResponse{
			AccountID: accountID,
			Balance:   req.InitialBalance.StringFixed(2),
		})
	}
}
