package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// AccountRepository creates and reads account rows. It never changes balances;
// that is left to the ledger engine.
type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account and returns its identifier.
func (r *AccountRepository) Create(ctx context.Context, userID int64, initialBalance decimal.Decimal) (int64, error) {
	const query = `
		INSERT INTO accounts (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING account_id
	`
	args := []any{userID, initialBalance}

	var accountID int64
	err := r.db.GetContext(ctx, &accountID, query, args...)
	logQuery(query, args, accountID, err)

	return accountID, err
}

// GetByID returns the account, or nil when it does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, accountID int64) (*models.AccountDB, error) {
	const query = `
		SELECT account_id, user_id, balance, created_at, updated_at
		FROM accounts
		WHERE account_id = $1
	`

	var acc models.AccountDB
	err := r.db.GetContext(ctx, &acc, query, accountID)
	logQuery(query, []any{accountID}, acc, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
