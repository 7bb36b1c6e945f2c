package repositories

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-ledger/internal/ledger"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

// lockNotAvailable is the SQLSTATE Postgres raises when lock_timeout expires.
const lockNotAvailable = "55P03"

// Migrate creates the ledger tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		logQuery(stmt, nil, nil, err)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// PostgresStore is the balance store and transaction log backed by Postgres.
// Units of work are database transactions; LockAndGet takes a row lock with
// SELECT ... FOR UPDATE that lives until commit or rollback.
type PostgresStore struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewPostgresStore creates a new store. Row lock waits longer than lockTimeout
// fail with models.ErrLockTimeout.
func NewPostgresStore(db *sqlx.DB, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

// Begin starts a transaction and bounds its lock waits.
func (s *PostgresStore) Begin(ctx context.Context) (ledger.BalanceTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	const query = `SELECT set_config('lock_timeout', $1, true)`
	args := []any{fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())}
	_, err = tx.ExecContext(ctx, query, args...)
	logQuery(query, args, nil, err)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return &postgresTx{tx: tx}, nil
}

// Append inserts a record outside of any unit of work.
func (s *PostgresStore) Append(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	return insertTransaction(ctx, s.db, txn)
}

// Query returns up to limit records naming the account, newest first.
func (s *PostgresStore) Query(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	const query = `
		SELECT txn_id, sender_account, receiver_account, amount, kind, outcome, failure_reason, created_at
		FROM transactions
		WHERE sender_account = $1 OR receiver_account = $1
		ORDER BY txn_id DESC
		LIMIT $2
	`

	txns := make([]models.Transaction, 0)
	err := s.db.SelectContext(ctx, &txns, query, accountID, limit)
	logQuery(query, []any{accountID, limit}, len(txns), err)
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// postgresTx is a unit of work over one database transaction.
type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) LockAndGet(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	const query = `SELECT balance FROM accounts WHERE account_id = $1 FOR UPDATE`

	var balance decimal.Decimal
	err := t.tx.GetContext(ctx, &balance, query, accountID)
	logQuery(query, []any{accountID}, balance, err)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, sql.ErrNoRows):
		return decimal.Zero, models.ErrAccountNotFound
	case errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable:
		return decimal.Zero, fmt.Errorf("%w: account %d: %s", models.ErrLockTimeout, accountID, pgErr.Message)
	default:
		return decimal.Zero, err
	}
}

func (t *postgresTx) Set(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	const query = `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE account_id = $2`
	args := []any{balance, accountID}

	res, err := t.tx.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, args, rowsAffected, err)

	if err != nil {
		return err
	}
	if rowsAffected != 1 {
		return fmt.Errorf("account %d: expected 1 updated row, got %d", accountID, rowsAffected)
	}
	return nil
}

func (t *postgresTx) Append(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	return insertTransaction(ctx, t.tx, txn)
}

func (t *postgresTx) Commit() error {
	err := t.tx.Commit()
	logQuery("COMMIT", nil, nil, err)
	return err
}

func (t *postgresTx) Rollback() error {
	err := t.tx.Rollback()
	logQuery("ROLLBACK", nil, nil, err)
	return err
}

// insertTransaction appends a record and fills in the id the database assigned.
func insertTransaction(ctx context.Context, q sqlx.QueryerContext, txn models.Transaction) (models.Transaction, error) {
	const query = `
		INSERT INTO transactions (sender_account, receiver_account, amount, kind, outcome, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING txn_id
	`
	args := []any{txn.SenderID, txn.ReceiverID, txn.Amount, string(txn.Kind), string(txn.Outcome), txn.FailureReason, txn.CreatedAt}

	err := sqlx.GetContext(ctx, q, &txn.ID, query, args...)
	logQuery(query, args, txn.ID, err)
	if err != nil {
		return models.Transaction{}, err
	}
	return txn, nil
}

// logQuery logs a statement in a single line together with its args, result and error.
func logQuery(query string, args []any, result any, err error) {
	logger.Log.Debugw("query",
		"sql", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}

var (
	_ ledger.BalanceStore   = (*PostgresStore)(nil)
	_ ledger.TransactionLog = (*PostgresStore)(nil)
)
