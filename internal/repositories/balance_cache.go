package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// ErrCacheMiss is returned when no display balance is cached for an account.
var ErrCacheMiss = errors.New("balance not found in cache")

// BalanceCacheRepository caches display balances in Redis. Cached values are
// never used for ledger decisions, which always re-read under lock.
type BalanceCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached balances
}

// NewBalanceCacheRepository creates a new repository instance with the given TTL
func NewBalanceCacheRepository(client *redis.Client, expiration time.Duration) *BalanceCacheRepository {
	return &BalanceCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func balanceKey(accountID int64) string {
	return fmt.Sprintf("balance:%d", accountID)
}

// Get fetches the cached balance of an account.
func (r *BalanceCacheRepository) Get(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	key := balanceKey(accountID)

	val, err := r.client.Get(ctx, key).Result()
	logger.Log.Debugw("cache get", "key", key, "value", val, "error", err)
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, ErrCacheMiss
	}
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cached balance %q for %s: %w", val, key, err)
	}
	return balance, nil
}

// Set caches the balance of an account with expiration.
func (r *BalanceCacheRepository) Set(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	key := balanceKey(accountID)
	err := r.client.Set(ctx, key, balance.StringFixed(2), r.exp).Err()
	logger.Log.Debugw("cache set", "key", key, "value", balance, "error", err)
	return err
}

// Invalidate drops the cached balances of the given accounts.
func (r *BalanceCacheRepository) Invalidate(ctx context.Context, accountIDs ...int64) error {
	if len(accountIDs) == 0 {
		return nil
	}
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = balanceKey(id)
	}
	err := r.client.Del(ctx, keys...).Err()
	logger.Log.Debugw("cache invalidate", "keys", keys, "error", err)
	return err
}
