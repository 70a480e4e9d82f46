package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vecindario/discovery/internal/app"
	"github.com/vecindario/discovery/internal/config"
	"github.com/vecindario/discovery/internal/logging"
)

func main() {
	// Optional .env for local development; flags and env still win.
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	logger := application.Logger

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sigChan
		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", logging.WithField("error", err.Error()))
		}
	}()

	logger.Info("Starting discovery gateway", logging.WithFields(map[string]interface{}{
		"addr":     cfg.Server.HTTPAddr,
		"upstream": cfg.Upstream.BaseURL,
	}))

	err := application.Run()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server error", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
	if errors.Is(err, http.ErrServerClosed) {
		// Run returns as soon as Shutdown begins; wait for the drain,
		// registry close, and redis close to finish before exiting.
		<-shutdownDone
	}
}
