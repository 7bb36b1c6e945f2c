package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryHandler(t *testing.T) {
	a, b := int64(1), int64(2)
	reason := models.ErrInsufficientFunds.Error()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	txns := []models.Transaction{
		{ID: 3, SenderID: &a, Amount: decimal.NewFromInt(500), Kind: models.KindWithdrawal, Outcome: models.OutcomeFailed, FailureReason: &reason, CreatedAt: now},
		{ID: 2, SenderID: &b, ReceiverID: &a, Amount: decimal.NewFromInt(30), Kind: models.KindTransfer, Outcome: models.OutcomeSuccess, CreatedAt: now},
		{ID: 1, ReceiverID: &a, Amount: decimal.NewFromInt(100), Kind: models.KindDeposit, Outcome: models.OutcomeSuccess, CreatedAt: now},
	}

	t.Run("default limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockEngine := NewMockHistoryReader(ctrl)
		mockEngine.EXPECT().History(gomock.Any(), a, 0).Return(txns, nil)

		req := newAccountRequest(http.MethodGet, "/api/v1/accounts/1/transactions", "1", "")
		rr := httptest.NewRecorder()
		NewHistoryHandler(mockEngine).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp HistoryResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp.Transactions, 3)

		assert.Equal(t, models.DirectionSent, resp.Transactions[0].Direction)
		assert.Equal(t, models.OutcomeFailed, resp.Transactions[0].Outcome)
		assert.Equal(t, reason, *resp.Transactions[0].FailureReason)
		assert.Nil(t, resp.Transactions[0].CounterpartyAccount)

		assert.Equal(t, models.DirectionReceived, resp.Transactions[1].Direction)
		require.NotNil(t, resp.Transactions[1].CounterpartyAccount)
		assert.Equal(t, b, *resp.Transactions[1].CounterpartyAccount)
		assert.Equal(t, "30.00", resp.Transactions[1].Amount)

		assert.Equal(t, models.DirectionReceived, resp.Transactions[2].Direction)
	})

	t.Run("explicit limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockEngine := NewMockHistoryReader(ctrl)
		mockEngine.EXPECT().History(gomock.Any(), a, 2).Return(txns[:2], nil)

		req := newAccountRequest(http.MethodGet, "/api/v1/accounts/1/transactions?limit=2", "1", "")
		rr := httptest.NewRecorder()
		NewHistoryHandler(mockEngine).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("empty history is an empty list", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockEngine := NewMockHistoryReader(ctrl)
		mockEngine.EXPECT().History(gomock.Any(), a, 0).Return(nil, nil)

		req := newAccountRequest(http.MethodGet, "/api/v1/accounts/1/transactions", "1", "")
		rr := httptest.NewRecorder()
		NewHistoryHandler(mockEngine).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"account_id":1,"transactions":[]}`, rr.Body.String())
	})

	t.Run("invalid limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockEngine := NewMockHistoryReader(ctrl)

		req := newAccountRequest(http.MethodGet, "/api/v1/accounts/1/transactions?limit=-1", "1", "")
		rr := httptest.NewRecorder()
		NewHistoryHandler(mockEngine).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockEngine := NewMockHistoryReader(ctrl)
		mockEngine.EXPECT().History(gomock.Any(), a, 0).Return(nil, models.ErrStorageFailure)

		req := newAccountRequest(http.MethodGet, "/api/v1/accounts/1/transactions", "1", "")
		rr := httptest.NewRecorder()
		NewHistoryHandler(mockEngine).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
