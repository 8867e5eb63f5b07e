package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/walkthrough/internal"
	"github.com/DukeRupert/walkthrough/internal/draft"
	"github.com/DukeRupert/walkthrough/internal/gateway"
	"github.com/DukeRupert/walkthrough/internal/handler"
	"github.com/DukeRupert/walkthrough/internal/metrics"
	"github.com/DukeRupert/walkthrough/internal/middleware"
	"github.com/DukeRupert/walkthrough/internal/report"
	"github.com/DukeRupert/walkthrough/internal/storage"
	"github.com/DukeRupert/walkthrough/internal/submission"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

// Property searches allowed per client per minute.
const searchRateLimit = 60

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	out, closeLog, err := internal.LogWriter(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()
	logger := internal.NewLogger(out, cfg.Env, cfg.LogLevel)

	// Initialize draft persistence
	backend, closeBackend, err := openDraftBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	drafts := draft.NewStore(backend, logger, draft.WithTimeout(cfg.DraftTimeout))
	logger.Info("Draft store ready", "backend", cfg.DraftBackend)

	machine := wizard.NewMachine(drafts, wizard.WithLogger(logger))

	// Initialize property management client
	apex27, err := gateway.New(gateway.Config{
		BaseURL:  cfg.Apex27BaseURL,
		APIKey:   cfg.Apex27APIKey,
		ViaProxy: cfg.Apex27ViaProxy,
		Timeout:  cfg.GatewayTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("gateway initialization failed: %w", err)
	}

	// Initialize report generation and archive
	pdf := report.NewPDFGenerator(logger)
	pipeline := submission.New(apex27, pdf, logger)

	store, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local: storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
			Endpoint:        cfg.R2Endpoint,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	archive := storage.NewReportArchive(store, cfg.ReportURLExpiry, logger)
	logger.Info("Report storage ready", "provider", cfg.StorageProvider)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	searchLimit := middleware.NewRateLimitMiddleware(middleware.NewRateLimiter(searchRateLimit, time.Minute), logger)

	// Initialize handlers
	dashboardHandler := handler.NewDashboardHandler(apex27, machine, logger)
	inspectionHandler := handler.NewInspectionHandler(machine, logger)
	listingHandler := handler.NewListingHandler(apex27, machine, logger)
	submissionHandler := handler.NewSubmissionHandler(pipeline, pdf, archive, machine, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics endpoint (protected by basic auth if configured)
	if cfg.MetricsUsername == "" || cfg.MetricsPassword == "" {
		logger.Warn("Metrics endpoint is unprotected, set METRICS_USERNAME and METRICS_PASSWORD")
	}
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Locally stored reports
	if cfg.StorageProvider == storage.ProviderLocal {
		files := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", files))
	}

	dashboardHandler.RegisterRoutes(mux)
	inspectionHandler.RegisterRoutes(mux)
	listingHandler.RegisterRoutes(mux, searchLimit.Limit)
	submissionHandler.RegisterRoutes(mux)

	stack := middleware.Stack(
		middleware.Recover(logger),
		securityMw.Handler,
		loggingMw.Handler,
		metrics.Middleware,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// openDraftBackend connects the draft backend named in cfg. The returned
// func releases it.
func openDraftBackend(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (draft.Backend, func(), error) {
	switch cfg.DraftBackend {
	case internal.DraftBackendMemory:
		logger.Warn("Drafts are kept in memory and will not survive a restart")
		return draft.NewMemoryBackend(), func() {}, nil

	case internal.DraftBackendRedis:
		client := draft.NewRedisClient(draft.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		backend := draft.NewRedisBackend(client, "")
		if err := backend.Ping(ctx); err != nil {
			backend.Close()
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil

	case internal.DraftBackendPostgres:
		db, err := draft.OpenPostgres(ctx, cfg.DatabaseUrl)
		if err != nil {
			return nil, nil, err
		}
		if err := internal.RunMigrations(db, string(draft.DialectPostgres)); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		return draft.NewSQLBackend(db, draft.DialectPostgres), func() { db.Close() }, nil

	default:
		db, err := draft.OpenSQLite(cfg.DraftSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := internal.RunMigrations(db, string(draft.DialectSQLite)); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		return draft.NewSQLBackend(db, draft.DialectSQLite), func() { db.Close() }, nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
