package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with APP_STORAGE.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application, storage, cache, messaging, ledger and JWT settings.
type Config struct {
	AppHost  string
	AppPort  string
	LogLevel string
	Storage  string // postgres or memory

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	BalanceCacheTTL   time.Duration

	KafkaBrokers []string // empty disables publishing
	KafkaTopic   string

	LockTimeout  time.Duration
	HistoryLimit int

	JWTSecretKey  string
	JWTExpiration time.Duration
}

// Load reads variables from the env file at path, if present, and returns the
// configuration with defaults applied. Variables already set in the process
// environment win over the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	var (
		cfg Config
		err error
	)
	getInt := func(key, defaultValue string) int {
		if err != nil {
			return 0
		}
		var n int
		n, err = strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return n
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	cfg.Storage = getEnv("APP_STORAGE", StoragePostgres)

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	cfg.PGPort = getInt("POSTGRES_PORT", "5432")
	cfg.PGMaxOpenConns = getInt("POSTGRES_MAX_OPEN_CONNS", "16")
	cfg.PGMaxIdleConns = getInt("POSTGRES_MAX_IDLE_CONNS", "8")

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisPort = getInt("REDIS_PORT", "6379")
	cfg.RedisDB = getInt("REDIS_DB", "0")
	cfg.RedisPoolSize = getInt("REDIS_POOL_SIZE", "10")
	cfg.RedisMinIdleConns = getInt("REDIS_MIN_IDLE_CONNS", "2")
	cfg.BalanceCacheTTL = time.Duration(getInt("BALANCE_CACHE_TTL_SECOND", "60")) * time.Second

	// Kafka config
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "ledger.transactions")

	// Ledger config
	cfg.LockTimeout = time.Duration(getInt("LEDGER_LOCK_TIMEOUT_MS", "5000")) * time.Millisecond
	cfg.HistoryLimit = getInt("LEDGER_HISTORY_LIMIT", "50")

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	cfg.JWTExpiration = time.Duration(getInt("JWT_EXP_SECOND", "86400")) * time.Second

	if err != nil {
		return Config{}, err
	}
	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return Config{}, fmt.Errorf("APP_STORAGE: unknown storage %q", cfg.Storage)
	}
	if cfg.LockTimeout <= 0 {
		return Config{}, fmt.Errorf("LEDGER_LOCK_TIMEOUT_MS must be positive")
	}
	return cfg, nil
}

// PostgresDSN returns the connection string for the pgx driver.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// RedisAddr returns host:port of the Redis server.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
