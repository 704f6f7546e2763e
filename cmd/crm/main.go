package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consigline/crm-api-go/internal/config"
	"github.com/consigline/crm-api-go/internal/handler"
	"github.com/consigline/crm-api-go/internal/infra/baserow"
	"github.com/consigline/crm-api-go/internal/infra/gormstore"
	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
	"github.com/consigline/crm-api-go/internal/infra/supabase"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/seed"
	"github.com/consigline/crm-api-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("session_ttl", cfg.SessionTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "crm-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	// --- Bootstrap ---
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 60*time.Second)
	if err := seed.New(store, logger).Run(seedCtx); err != nil {
		cancelSeed()
		logger.Fatal("bootstrap seeding failed", zap.Error(err))
	}
	cancelSeed()

	// --- Services ---
	crm := service.NewCRM(store, metrics, logger)
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.SessionTTL, logger)
	formSvc := service.NewFormService(store, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(crm, authSvc, formSvc, store, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore builds the storage adapter named by STORAGE_BACKEND. The
// three adapters satisfy the same contract, so everything past this
// point is backend-agnostic.
func openStore(cfg *config.Config, logger *zap.Logger) (port.Store, error) {
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		logger.Info("using relational database as data backend")
		return gormstore.Open(cfg.DatabaseDSN, logger)

	case config.BackendSupabase:
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		cb := resilience.NewCircuitBreaker("supabase")
		return supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		), nil

	case config.BackendBaserow:
		logger.Info("using Baserow as data backend",
			zap.String("baserow_url", cfg.BaserowAPIURL),
		)
		mapping, err := baserow.LoadMapping(cfg.BaserowMappingFile)
		if err != nil {
			return nil, err
		}
		cb := resilience.NewCircuitBreaker("baserow")
		return baserow.NewClient(
			httpClient,
			cfg.BaserowAPIURL,
			cfg.BaserowToken,
			mapping,
			cb,
			resilienceCfg,
			logger,
		), nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
