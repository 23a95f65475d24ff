// Package main runs the presale API server:
// - sale ledger on memory or PostgreSQL
// - mint event fan-out to the websocket stream, ClickHouse and NATS JetStream
// - /health, /metrics and /status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vigri-presale/internal/api"
	"vigri-presale/internal/config"
	"vigri-presale/internal/events"
	"vigri-presale/internal/logger"
	"vigri-presale/internal/presale"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
	chstore "vigri-presale/internal/storage/clickhouse"
	"vigri-presale/internal/storage/memory"
	"vigri-presale/internal/storage/migrations"
	pgstore "vigri-presale/internal/storage/postgres"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(logger.Config{
		Debug:  cfg.Debug,
		Fields: map[string]string{"service": "vigri-presale"},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.ServerConfig) error {
	store, closeStore, err := createStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer closeStore()

	hub := events.NewHub(nil, logger.Named("stream"))
	defer hub.Close()

	fanout := events.NewFanout(events.Sink{Name: "stream", Publisher: hub})
	apiOpts := []api.Option{api.WithEventStream(hub), api.WithLogger(logger.Named("api"))}

	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer conn.Close()
		analytics := chstore.NewMintEventStore(conn)
		fanout.Add("clickhouse", events.PublisherFunc(analytics.Append))
		apiOpts = append(apiOpts, api.WithAnalytics(analytics))
		logger.Info("ClickHouse sink enabled")
	}

	if cfg.NATS.URL != "" {
		nats, err := events.NewNATSPublisher(ctx, events.NATSConfig{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
			PublishTimeout: cfg.NATS.PublishTimeout,
		}, logger.Named("nats"))
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer nats.Close()
		fanout.Add("nats", nats)
		logger.Info("NATS sink enabled", zap.String("stream", cfg.NATS.StreamName))
	}

	programID, err := solana.ParsePublicKey(cfg.Presale.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}

	svc, err := presale.NewService(store,
		presale.WithProgramID(programID),
		presale.WithMetadataBaseURL(cfg.Presale.MetadataBaseURL),
		presale.WithPublisher(fanout),
		presale.WithBackend(cfg.Store.Backend),
		presale.WithLogger(logger.Named("presale")),
	)
	if err != nil {
		return err
	}
	logger.Info("Presale ready",
		zap.String("backend", cfg.Store.Backend),
		zap.Stringer("config_address", svc.ConfigAddress()),
		zap.Int("sinks", fanout.Len()),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewServer(svc, apiOpts...),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})
	defer close(done)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("Received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	hub.Close()
	return srv.Shutdown(shutdownCtx)
}

// createStore opens the configured ledger substrate.
func createStore(ctx context.Context, cfg config.StoreConfig) (storage.Store, func(), error) {
	if cfg.Backend == config.BackendMemory {
		logger.Warn("Using in-memory store, state is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	return pgstore.NewStore(pool), pool.Close, nil
}
