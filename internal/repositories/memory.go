package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sbilibin2017/gw-ledger/internal/ledger"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
	"github.com/shopspring/decimal"
)

var errTxDone = errors.New("unit of work already committed or rolled back")

// MemoryStore keeps accounts and the transaction log in process memory.
// Each account has a lease that a unit of work must hold to change its balance;
// staged changes of one unit of work are applied together under mu.
type MemoryStore struct {
	lockTimeout time.Duration

	leasesMu sync.Mutex
	leases   map[int64]*lease

	mu        sync.RWMutex
	accounts  map[int64]*models.AccountDB
	txns      []models.Transaction
	nextAccID int64
	nextTxnID int64
}

// lease is held by at most one unit of work. refs counts the holder and the
// waiters; the entry is dropped when it reaches zero.
type lease struct {
	ch   chan struct{}
	refs int
}

// NewMemoryStore creates an empty store. Lock waits longer than lockTimeout fail
// with models.ErrLockTimeout.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		lockTimeout: lockTimeout,
		leases:      make(map[int64]*lease),
		accounts:    make(map[int64]*models.AccountDB),
	}
}

// ref returns the lease of an account, creating it on first use.
func (s *MemoryStore) ref(accountID int64) *lease {
	s.leasesMu.Lock()
	defer s.leasesMu.Unlock()

	l, ok := s.leases[accountID]
	if !ok {
		l = &lease{ch: make(chan struct{}, 1)}
		s.leases[accountID] = l
	}
	l.refs++
	return l
}

func (s *MemoryStore) unref(accountID int64, l *lease) {
	s.leasesMu.Lock()
	defer s.leasesMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.leases, accountID)
	}
}

func (s *MemoryStore) acquire(ctx context.Context, accountID int64) error {
	l := s.ref(accountID)
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-timer.C:
		s.unref(accountID, l)
		return fmt.Errorf("%w: account %d", models.ErrLockTimeout, accountID)
	case <-ctx.Done():
		s.unref(accountID, l)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: account %d: %w", models.ErrLockTimeout, accountID, ctx.Err())
		}
		return ctx.Err()
	}
}

// release frees a lease taken by acquire.
func (s *MemoryStore) release(accountID int64) {
	s.leasesMu.Lock()
	l := s.leases[accountID]
	s.leasesMu.Unlock()

	<-l.ch
	s.unref(accountID, l)
}

// Begin opens a unit of work.
func (s *MemoryStore) Begin(ctx context.Context) (ledger.BalanceTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{
		store:  s,
		held:   make(map[int64]struct{}, 2),
		staged: make(map[int64]decimal.Decimal, 2),
	}, nil
}

// Append adds a record to the log outside of any unit of work.
func (s *MemoryStore) Append(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxnID++
	txn.ID = s.nextTxnID
	s.insertRecord(txn)
	return txn, nil
}

// insertRecord keeps txns ordered by id. Ids are taken when a record is staged,
// so a unit of work that commits late lands before records appended meanwhile.
// Callers hold mu.
func (s *MemoryStore) insertRecord(txn models.Transaction) {
	i := sort.Search(len(s.txns), func(i int) bool { return s.txns[i].ID > txn.ID })
	s.txns = slices.Insert(s.txns, i, txn)
}

// Query returns up to limit records naming the account, newest first.
func (s *MemoryStore) Query(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Transaction, 0, min(limit, len(s.txns)))
	for i := len(s.txns) - 1; i >= 0 && len(result) < limit; i-- {
		if s.txns[i].References(accountID) {
			result = append(result, s.txns[i])
		}
	}
	return result, nil
}

// Create inserts a new account and returns its identifier.
func (s *MemoryStore) Create(ctx context.Context, userID int64, initialBalance decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccID++
	now := time.Now().UTC()
	s.accounts[s.nextAccID] = &models.AccountDB{
		AccountID: s.nextAccID,
		UserID:    userID,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.nextAccID, nil
}

// GetByID returns a copy of the account, or nil when it does not exist.
func (s *MemoryStore) GetByID(ctx context.Context, accountID int64) (*models.AccountDB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

// memoryTx is a unit of work over a MemoryStore.
type memoryTx struct {
	store   *MemoryStore
	held    map[int64]struct{}
	staged  map[int64]decimal.Decimal
	records []models.Transaction
	done    bool
}

func (tx *memoryTx) LockAndGet(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if tx.done {
		return decimal.Zero, errTxDone
	}
	if _, ok := tx.held[accountID]; !ok {
		if err := tx.store.acquire(ctx, accountID); err != nil {
			return decimal.Zero, err
		}
		tx.held[accountID] = struct{}{}
	}

	tx.store.mu.RLock()
	acc, ok := tx.store.accounts[accountID]
	var balance decimal.Decimal
	if ok {
		balance = acc.Balance
	}
	tx.store.mu.RUnlock()

	if !ok {
		return decimal.Zero, models.ErrAccountNotFound
	}
	if staged, ok := tx.staged[accountID]; ok {
		return staged, nil
	}
	return balance, nil
}

func (tx *memoryTx) Set(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.held[accountID]; !ok {
		return fmt.Errorf("account %d is not locked by this unit of work", accountID)
	}
	if balance.IsNegative() {
		return fmt.Errorf("account %d: balance %s would be negative", accountID, balance)
	}
	tx.staged[accountID] = balance
	return nil
}

func (tx *memoryTx) Append(ctx context.Context, txn models.Transaction) (models.Transaction, error) {
	if tx.done {
		return models.Transaction{}, errTxDone
	}
	tx.store.mu.Lock()
	tx.store.nextTxnID++
	txn.ID = tx.store.nextTxnID
	tx.store.mu.Unlock()

	tx.records = append(tx.records, txn)
	return txn, nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	now := time.Now().UTC()
	for id, balance := range tx.staged {
		acc := s.accounts[id]
		acc.Balance = balance
		acc.UpdatedAt = now
	}
	for _, rec := range tx.records {
		s.insertRecord(rec)
	}
	s.mu.Unlock()

	tx.releaseAll()
	logger.Log.Debugw("memory unit of work committed", "accounts", len(tx.staged), "records", len(tx.records))
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	tx.releaseAll()
	return nil
}

func (tx *memoryTx) releaseAll() {
	for id := range tx.held {
		tx.store.release(id)
	}
	tx.held = nil
}

var (
	_ ledger.BalanceStore   = (*MemoryStore)(nil)
	_ ledger.TransactionLog = (*MemoryStore)(nil)
)
