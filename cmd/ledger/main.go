package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sbilibin2017/gw-ledger/internal/app"
	"github.com/sbilibin2017/gw-ledger/internal/config"
	"github.com/sbilibin2017/gw-ledger/internal/handlers"
	"github.com/sbilibin2017/gw-ledger/internal/ledger"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-ledger/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title gw-ledger API
// @version 1.0.0
// @description Bank account ledger: deposits, withdrawals, transfers and transaction history
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// newRouter wires handlers and middleware into a chi router.
func newRouter(
	cfg config.Config,
	engine *ledger.Engine,
	accounts *services.AccountService,
	tokens middlewares.Tokener,
	ready func(ctx context.Context) error,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if err := ready(r.Context()); err != nil {
			logger.Log.Warnw("health check failed", "error", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(tokens))

		r.Post("/accounts", handlers.NewCreateAccountHandler(accounts))

		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Use(middlewares.AccountOwnerMiddleware(accounts))

			r.Get("/balance", handlers.NewGetBalanceHandler(accounts))
			r.Post("/deposit", handlers.NewDepositHandler(engine))
			r.Post("/withdraw", handlers.NewWithdrawHandler(engine))
			r.Post("/transfer", handlers.NewTransferHandler(engine))
			r.Get("/transactions", handlers.NewHistoryHandler(engine))
		})
	})

	return r
}

// run initializes the logger, the ledger components and the HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config.Config) error {
	if err := logger.Initialize(cfg.LogLevel, "ledger"); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infow("Logger initialized", "level", cfg.LogLevel, "storage", cfg.Storage)

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Errorw("failed to initialize ledger", "error", err)
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler:           newRouter(cfg, a.Engine, a.Accounts, a.Tokens, a.Ready),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
