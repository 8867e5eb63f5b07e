package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/walkthrough/internal"
	"github.com/DukeRupert/walkthrough/internal/middleware"
	"github.com/DukeRupert/walkthrough/internal/proxy"
)

func run() error {
	cfg, err := internal.NewProxyConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	out, closeLog, err := internal.LogWriter(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer closeLog()
	logger := internal.NewLogger(out, cfg.Env, cfg.LogLevel)

	relay, err := proxy.New(proxy.Config{
		Target:     cfg.Target,
		APIKey:     cfg.APIKey,
		Base64Body: cfg.Base64Body,
	}, logger)
	if err != nil {
		return err
	}

	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	stack := middleware.Stack(middleware.Recover(logger), loggingMw.Handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(relay),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Proxy started", "address", server.Addr, "target", cfg.Target, "base64_body", cfg.Base64Body)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Proxy failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Proxy shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
