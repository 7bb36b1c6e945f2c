package services

//go:generate mockgen -source=account.go -destination=account_mock.go -package=services

import (
	"context"
	"errors"

	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// AccountReader defines read-only operations for accounts.
type AccountReader interface {
	GetByID(ctx context.Context, accountID int64) (*models.AccountDB, error) // Returns nil when the account does not exist
}

// AccountWriter defines write operations for accounts.
type AccountWriter interface {
	Create(ctx context.Context, userID int64, initialBalance decimal.Decimal) (int64, error)
}

// BalanceCacher caches display balances.
type BalanceCacher interface {
	Get(ctx context.Context, accountID int64) (decimal.Decimal, error)
	Set(ctx context.Context, accountID int64, balance decimal.Decimal) error
}

// AccountService creates accounts and answers existence and display-balance
// lookups. Balances it returns are for display only.
type AccountService struct {
	reader AccountReader
	writer AccountWriter
	cache  BalanceCacher
}

// NewAccountService creates a new AccountService. cache may be nil.
func NewAccountService(reader AccountReader, writer AccountWriter, cache BalanceCacher) *AccountService {
	return &AccountService{
		reader: reader,
		writer: writer,
		cache:  cache,
	}
}

// CreateAccount opens an account for userID with a non-negative initial balance.
func (svc *AccountService) CreateAccount(ctx context.Context, userID int64, initialBalance decimal.Decimal) (int64, error) {
	if initialBalance.IsNegative() || !initialBalance.Equal(initialBalance.Truncate(models.MoneyScale)) {
		return 0, models.ErrInvalidAmount
	}

	accountID, err := svc.writer.Create(ctx, userID, initialBalance)
	if err != nil {
		logger.Log.Errorw("failed to create account", "user_id", userID, "error", err)
		return 0, errors.Join(models.ErrStorageFailure, err)
	}

	logger.Log.Infow("account created", "account_id", accountID, "user_id", userID, "initial_balance", initialBalance)
	return accountID, nil
}

// AccountExists reports whether the account exists.
func (svc *AccountService) AccountExists(ctx context.Context, accountID int64) (bool, error) {
	acc, err := svc.reader.GetByID(ctx, accountID)
	if err != nil {
		logger.Log.Errorw("failed to look up account", "account_id", accountID, "error", err)
		return false, errors.Join(models.ErrStorageFailure, err)
	}
	return acc != nil, nil
}

// Owner returns the user that owns the account.
func (svc *AccountService) Owner(ctx context.Context, accountID int64) (int64, error) {
	acc, err := svc.reader.GetByID(ctx, accountID)
	if err != nil {
		logger.Log.Errorw("failed to look up account", "account_id", accountID, "error", err)
		return 0, errors.Join(models.ErrStorageFailure, err)
	}
	if acc == nil {
		return 0, models.ErrAccountNotFound
	}
	return acc.UserID, nil
}

// GetBalance returns the display balance, served from cache when possible.
func (svc *AccountService) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if svc.cache != nil {
		if balance, err := svc.cache.Get(ctx, accountID); err == nil {
			return balance, nil
		}
	}

	acc, err := svc.reader.GetByID(ctx, accountID)
	if err != nil {
		logger.Log.Errorw("failed to get balance", "account_id", accountID, "error", err)
		return decimal.Zero, errors.Join(models.ErrStorageFailure, err)
	}
	if acc == nil {
		return decimal.Zero, models.ErrAccountNotFound
	}

	if svc.cache != nil {
		if err := svc.cache.Set(ctx, accountID, acc.Balance); err != nil {
			logger.Log.Warnw("failed to cache balance", "account_id", accountID, "error", err)
		}
	}
	return acc.Balance, nil
}
