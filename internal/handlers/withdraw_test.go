package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWithdrawHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEngine := NewMockWithdrawer(ctrl)
	handler := NewWithdrawHandler(mockEngine)

	t.Run("successful withdraw", func(t *testing.T) {
		mockEngine.EXPECT().
			Withdraw(gomock.Any(), int64(2), decimal.RequireFromString("40")).
			Return(models.Result{Balance: decimal.NewFromInt(60), Transaction: models.Transaction{ID: 8}}, nil)

		req := newAccountRequest(http.MethodPost, "/api/v1/accounts/2/withdraw", "2", `{"amount": "40"}`)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp OperationResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, OperationResponse{AccountID: 2, Balance: "60.00", TransactionID: 8}, resp)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mockEngine.EXPECT().
			Withdraw(gomock.Any(), int64(2), gomock.Any()).
			Return(models.Result{}, models.ErrInsufficientFunds)

		req := newAccountRequest(http.MethodPost, "/api/v1/accounts/2/withdraw", "2", `{"amount": "150"}`)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		var resp ErrorResponse
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "insufficient funds", resp.Error)
	})

	t.Run("storage failure is retryable", func(t *testing.T) {
		mockEngine.EXPECT().
			Withdraw(gomock.Any(), int64(2), gomock.Any()).
			Return(models.Result{}, models.ErrStorageFailure)

		req := newAccountRequest(http.MethodPost, "/api/v1/accounts/2/withdraw", "2", `{"amount": "1"}`)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	})

	t.Run("invalid request body", func(t *testing.T) {
		req := newAccountRequest(http.MethodPost, "/api/v1/accounts/2/withdraw", "2", "{")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
