// Package main runs live ingestion: it subscribes to pump.fun program
// logs over WebSocket, folds create/trade/complete events into token
// records and writes them to the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hcrypto7/MigDBQuery/internal/ingestion"
	"github.com/hcrypto7/MigDBQuery/internal/observability"
	"github.com/hcrypto7/MigDBQuery/internal/solana"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
	chstore "github.com/hcrypto7/MigDBQuery/internal/storage/clickhouse"
	"github.com/hcrypto7/MigDBQuery/internal/storage/memory"
	"github.com/hcrypto7/MigDBQuery/internal/storage/migrations"
	pgstore "github.com/hcrypto7/MigDBQuery/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	backend := flag.String("backend", envOr("STORAGE_BACKEND", "postgres"), "Storage backend: memory, postgres, or clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	program := flag.String("program", ingestion.PumpFun, "Program ID to monitor")
	priceSOL := flag.Float64("price-sol", 0, "Launch price setting stamped onto records (SOL)")
	limitSOL := flag.Float64("limit-sol", 0, "Launch limit setting stamped onto records (SOL)")
	buyAmountSOL := flag.Float64("buy-amount-sol", 0, "Configured buy amount stamped onto records (SOL)")
	pendingTTL := flag.Duration("pending-ttl", ingestion.DefaultPendingTTL, "How long a create waits for trades before flushing")
	runMigrations := flag.Bool("migrate", true, "Apply schema migrations on startup")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, runConfig{
		wsEndpoint:    *wsEndpoint,
		backend:       *backend,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		program:       *program,
		pendingTTL:    *pendingTTL,
		runMigrations: *runMigrations,
		defaults: ingestion.LaunchDefaults{
			PriceSOL:     *priceSOL,
			LimitSOL:     *limitSOL,
			BuyAmountSOL: *buyAmountSOL,
		},
	})

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runConfig struct {
	wsEndpoint    string
	backend       string
	postgresDSN   string
	clickhouseDSN string
	program       string
	pendingTTL    time.Duration
	runMigrations bool
	defaults      ingestion.LaunchDefaults
}

// run connects the WebSocket source to the record store and consumes
// events until cancellation.
func run(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	store, cleanup, err := createStore(ctx, cfg.backend, cfg.postgresDSN, cfg.clickhouseDSN, cfg.runMigrations)
	if err != nil {
		return err
	}
	defer cleanup()

	ws, err := solana.NewWSClient(ctx, cfg.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	source := ingestion.NewWSMintEventSource(ws, cfg.program)

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:     source,
		Store:      store,
		Defaults:   cfg.defaults,
		PendingTTL: cfg.pendingTTL,
		Logger:     logger,
	})

	logger.Printf("Monitoring program %s", cfg.program)
	logger.Println("Starting live ingestion...")
	return runner.Run(ctx)
}

// createStore builds the record store for the selected backend.
func createStore(ctx context.Context, backend, postgresDSN, clickhouseDSN string, migrate bool) (storage.TokenRecordStore, func(), error) {
	switch backend {
	case "memory":
		return memory.NewTokenRecordStore(), func() {}, nil

	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required for the postgres backend")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
			}
		}
		return pgstore.NewTokenRecordStore(pool), pool.Close, nil

	case "clickhouse":
		if clickhouseDSN == "" {
			return nil, nil, fmt.Errorf("--clickhouse-dsn is required for the clickhouse backend")
		}
		var conn *chstore.Conn
		var err error
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
			if err != nil {
				return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
			}
		} else {
			conn, err = chstore.NewConn(ctx, clickhouseDSN)
			if err != nil {
				return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
			}
		}
		return chstore.NewTokenRecordStore(conn), func() { conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", backend)
	}
}

// envOr returns the environment value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
