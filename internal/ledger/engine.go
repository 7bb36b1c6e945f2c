package ledger

//go:generate mockgen -source=engine.go -destination=engine_mock.go -package=ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	// DefaultHistoryLimit is used when History is called without a positive limit.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps the number of records a single History call returns.
	MaxHistoryLimit = 500
)

// BalanceTx is one unit of work against the balance store. Locks taken by
// LockAndGet are held until Commit or Rollback, whichever comes first.
type BalanceTx interface {
	// LockAndGet acquires exclusive access to the account and returns its balance.
	// Returns models.ErrAccountNotFound or models.ErrLockTimeout.
	LockAndGet(ctx context.Context, accountID int64) (decimal.Decimal, error)
	// Set stages a new balance for an account locked by this unit of work.
	Set(ctx context.Context, accountID int64, balance decimal.Decimal) error
	// Append stages a record that becomes visible together with the balances.
	Append(ctx context.Context, txn models.Transaction) (models.Transaction, error)
	Commit() error
	Rollback() error
}

// BalanceStore opens units of work.
type BalanceStore interface {
	Begin(ctx context.Context) (BalanceTx, error)
}

// TransactionLog is the append-only record of attempted operations.
type TransactionLog interface {
	Append(ctx context.Context, txn models.Transaction) (models.Transaction, error)
	Query(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error)
}

// BalanceCache holds display balances that must be dropped after a commit.
type BalanceCache interface {
	Invalidate(ctx context.Context, accountIDs ...int64) error
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Engine applies deposits, withdrawals and transfers as all-or-nothing units.
type Engine struct {
	store        BalanceStore
	txLog        TransactionLog
	cache        BalanceCache
	kafkaWriter  KafkaWriter
	historyLimit int
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistoryLimit sets the default number of records History returns.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 && limit <= MaxHistoryLimit {
			e.historyLimit = limit
		}
	}
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new Engine. cache and kafkaWriter may be nil.
func NewEngine(
	store BalanceStore,
	txLog TransactionLog,
	cache BalanceCache,
	kafkaWriter KafkaWriter,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:        store,
		txLog:        txLog,
		cache:        cache,
		kafkaWriter:  kafkaWriter,
		historyLimit: DefaultHistoryLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deposit credits amount to the account and returns its new balance.
func (e *Engine) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Result, error) {
	if !models.ValidAmount(amount) {
		return models.Result{}, models.ErrInvalidAmount
	}

	req := models.OperationRequest{
		Kind:       models.KindDeposit,
		ReceiverID: &accountID,
		Amount:     amount,
	}

	return e.apply(ctx, req, func(ctx context.Context, tx BalanceTx) (decimal.Decimal, error) {
		balance, err := tx.LockAndGet(ctx, accountID)
		if err != nil {
			return decimal.Zero, err
		}
		newBalance := balance.Add(amount)
		if err := tx.Set(ctx, accountID, newBalance); err != nil {
			return decimal.Zero, err
		}
		return newBalance, nil
	})
}

// Withdraw debits amount from the account. The balance check and the debit
// happen under the same lock.
func (e *Engine) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (models.Result, error) {
	if !models.ValidAmount(amount) {
		return models.Result{}, models.ErrInvalidAmount
	}

	req := models.OperationRequest{
		Kind:     models.KindWithdrawal,
		SenderID: &accountID,
		Amount:   amount,
	}

	return e.apply(ctx, req, func(ctx context.Context, tx BalanceTx) (decimal.Decimal, error) {
		balance, err := tx.LockAndGet(ctx, accountID)
		if err != nil {
			return decimal.Zero, err
		}
		if balance.LessThan(amount) {
			return decimal.Zero, models.ErrInsufficientFunds
		}
		newBalance := balance.Sub(amount)
		if err := tx.Set(ctx, accountID, newBalance); err != nil {
			return decimal.Zero, err
		}
		return newBalance, nil
	})
}

// Transfer moves amount from sender to receiver and returns the sender's new balance.
// Both accounts are locked in ascending id order whatever their roles.
func (e *Engine) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal) (models.Result, error) {
	if senderID == receiverID {
		return models.Result{}, models.ErrSelfTransfer
	}
	if !models.ValidAmount(amount) {
		return models.Result{}, models.ErrInvalidAmount
	}

	req := models.OperationRequest{
		Kind:       models.KindTransfer,
		SenderID:   &senderID,
		ReceiverID: &receiverID,
		Amount:     amount,
	}

	return e.apply(ctx, req, func(ctx context.Context, tx BalanceTx) (decimal.Decimal, error) {
		locked, err := lockOrdered(ctx, tx, senderID, receiverID)
		if err != nil {
			return decimal.Zero, err
		}

		sender, ok := locked[senderID]
		if !ok {
			return decimal.Zero, models.ErrAccountNotFound
		}
		if sender.LessThan(amount) {
			return decimal.Zero, models.ErrInsufficientFunds
		}
		receiver, ok := locked[receiverID]
		if !ok {
			return decimal.Zero, models.ErrReceiverNotFound
		}

		newSender := sender.Sub(amount)
		if err := tx.Set(ctx, senderID, newSender); err != nil {
			return decimal.Zero, err
		}
		if err := tx.Set(ctx, receiverID, receiver.Add(amount)); err != nil {
			return decimal.Zero, err
		}
		return newSender, nil
	})
}

// History returns up to limit records naming the account, newest first.
// A non-positive limit selects the engine default; larger limits are capped.
func (e *Engine) History(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	switch {
	case limit <= 0:
		limit = e.historyLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	txns, err := e.txLog.Query(ctx, accountID, limit)
	if err != nil {
		logger.Log.Errorw("failed to query transaction history", "account_id", accountID, "limit", limit, "error", err)
		return nil, classify(err)
	}
	return txns, nil
}

// HistorySeq is the lazy form of History. Nothing is read until the sequence is
// ranged over, and every range reads the log again. A query error is yielded
// once as the last element.
func (e *Engine) HistorySeq(ctx context.Context, accountID int64, limit int) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		txns, err := e.History(ctx, accountID, limit)
		if err != nil {
			yield(models.Transaction{}, err)
			return
		}
		for _, txn := range txns {
			if !yield(txn, nil) {
				return
			}
		}
	}
}

// lockOrdered locks every id in ascending order and returns the balances of the
// accounts that exist. Missing accounts are left out of the map.
func lockOrdered(ctx context.Context, tx BalanceTx, a, b int64) (map[int64]decimal.Decimal, error) {
	if a > b {
		a, b = b, a
	}
	locked := make(map[int64]decimal.Decimal, 2)
	for _, id := range [2]int64{a, b} {
		balance, err := tx.LockAndGet(ctx, id)
		if errors.Is(err, models.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		locked[id] = balance
	}
	return locked, nil
}

// apply runs body inside one unit of work, appends the SUCCESS record and commits.
// On any failure the unit of work is rolled back before a FAILED record is written.
func (e *Engine) apply(
	ctx context.Context,
	req models.OperationRequest,
	body func(ctx context.Context, tx BalanceTx) (decimal.Decimal, error),
) (models.Result, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		logger.Log.Errorw("failed to begin ledger operation", "kind", req.Kind, "error", err)
		return models.Result{}, e.recordFailure(ctx, req, classify(err))
	}

	balance, err := body(ctx, tx)
	if err == nil {
		var txn models.Transaction
		txn, err = tx.Append(ctx, req.Record(models.OutcomeSuccess, nil, e.now()))
		if err == nil {
			err = tx.Commit()
		}
		if err == nil {
			logger.Log.Infow("ledger operation committed",
				"transaction_id", txn.ID, "kind", req.Kind, "amount", req.Amount, "balance", balance)
			e.afterCommit(ctx, req, txn)
			return models.Result{Balance: balance, Transaction: txn}, nil
		}
	}

	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Log.Warnw("rollback after failed ledger operation", "kind", req.Kind, "error", rbErr)
	}

	err = classify(err)
	logger.Log.Warnw("ledger operation aborted", "kind", req.Kind, "amount", req.Amount, "error", err)
	return models.Result{}, e.recordFailure(ctx, req, err)
}

// recordFailure appends a FAILED record for cause and returns cause. If the
// record cannot be written, the append error is joined to cause.
func (e *Engine) recordFailure(ctx context.Context, req models.OperationRequest, cause error) error {
	// The caller's context may be the reason the operation failed.
	ctx = context.WithoutCancel(ctx)

	txn, err := e.txLog.Append(ctx, req.Record(models.OutcomeFailed, cause, e.now()))
	if err != nil {
		logger.Log.Errorw("failed to record failed transaction", "kind", req.Kind, "cause", cause, "error", err)
		return errors.Join(cause, fmt.Errorf("%w: recording failed transaction: %v", models.ErrStorageFailure, err))
	}

	e.publishTransaction(ctx, txn)
	return cause
}

// afterCommit drops cached display balances and publishes the committed record.
func (e *Engine) afterCommit(ctx context.Context, req models.OperationRequest, txn models.Transaction) {
	if e.cache != nil {
		var ids []int64
		if req.SenderID != nil {
			ids = append(ids, *req.SenderID)
		}
		if req.ReceiverID != nil {
			ids = append(ids, *req.ReceiverID)
		}
		if err := e.cache.Invalidate(ctx, ids...); err != nil {
			logger.Log.Warnw("failed to invalidate cached balances", "accounts", ids, "error", err)
		}
	}
	e.publishTransaction(ctx, txn)
}

// publishTransaction publishes a transaction record to Kafka.
func (e *Engine) publishTransaction(ctx context.Context, txn models.Transaction) {
	if e.kafkaWriter == nil {
		logger.Log.Debugw("Kafka writer not configured, skipping publishing", "transaction_id", txn.ID)
		return
	}

	data, err := json.Marshal(txn)
	if err != nil {
		logger.Log.Errorw("Failed to marshal transaction for Kafka", "transaction_id", txn.ID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(txn.ID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "outcome", Value: []byte(txn.Outcome)},
		},
	}

	if err := e.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish transaction to Kafka", "transaction_id", txn.ID, "error", err)
	} else {
		logger.Log.Debugw("Transaction published to Kafka", "transaction_id", txn.ID, "outcome", txn.Outcome)
	}
}

// classify keeps taxonomy errors and caller cancellation as they are and turns
// everything else into a storage failure.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSelfTransfer),
		errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrReceiverNotFound),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrLockTimeout),
		errors.Is(err, models.ErrStorageFailure),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", models.ErrLockTimeout, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrStorageFailure, err)
	}
}
