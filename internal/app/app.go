// Package app assembles the ledger engine and the account service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-ledger/internal/config"
	"github.com/sbilibin2017/gw-ledger/internal/jwt"
	"github.com/sbilibin2017/gw-ledger/internal/ledger"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/repositories"
	"github.com/sbilibin2017/gw-ledger/internal/services"
)

// App holds the wired ledger components and the connections behind them.
type App struct {
	Engine   *ledger.Engine
	Accounts *services.AccountService
	Tokens   *jwt.JWT

	ready   func(ctx context.Context) error
	closers []func() error
}

// New connects the configured backends and builds the engine and account service.
// With memory storage nothing is dialed and no cache is used.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{
		Tokens: jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey), jwt.WithExpiration(cfg.JWTExpiration)),
		ready:  func(context.Context) error { return nil },
	}

	var (
		store  ledger.BalanceStore
		txLog  ledger.TransactionLog
		reader services.AccountReader
		writer services.AccountWriter
		cacher services.BalanceCacher
		cache  ledger.BalanceCache
	)

	switch cfg.Storage {
	case config.StorageMemory:
		mem := repositories.NewMemoryStore(cfg.LockTimeout)
		store, txLog, reader, writer = mem, mem, mem, mem

	case config.StoragePostgres:
		logger.Log.Infow("Connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)
		db, err := sqlx.ConnectContext(ctx, "pgx", cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connection error: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		db.SetMaxOpenConns(cfg.PGMaxOpenConns)
		db.SetMaxIdleConns(cfg.PGMaxIdleConns)
		a.ready = db.PingContext

		if err := repositories.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, err
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr(),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection error: %w", err)
		}

		pg := repositories.NewPostgresStore(db, cfg.LockTimeout)
		accounts := repositories.NewAccountRepository(db)
		balances := repositories.NewBalanceCacheRepository(rdb, cfg.BalanceCacheTTL)
		store, txLog, reader, writer, cacher, cache = pg, pg, accounts, accounts, balances, balances

	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	var kafkaWriter ledger.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Topic:                  cfg.KafkaTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
		a.closers = append(a.closers, w.Close)
		kafkaWriter = w
		logger.Log.Infow("Publishing transactions to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.Engine = ledger.NewEngine(store, txLog, cache, kafkaWriter, ledger.WithHistoryLimit(cfg.HistoryLimit))
	a.Accounts = services.NewAccountService(reader, writer, cacher)
	return a, nil
}

// Ready reports whether the storage backend is reachable.
func (a *App) Ready(ctx context.Context) error {
	return a.ready(ctx)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
