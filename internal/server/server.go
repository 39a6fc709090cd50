// Package server boots the application and serves it until SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/internal/kernel"
	"github.com/foodle-app/foodle/pkg/cache"
	"github.com/foodle-app/foodle/pkg/database"
	"github.com/foodle-app/foodle/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Start connects the database and Redis, builds the kernel and serves HTTP.
// Redis is optional unless REDIS_ENABLED is true and it is reachable.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Connect(ctx); err != nil {
		return err
	}
	if config.RedisEnabled() {
		if err := cache.Connect(ctx); err != nil {
			logger.Warn("server: redis unavailable, running single-instance", "error", err)
		}
	}
	defer cache.Close() //nolint:errcheck

	k, err := kernel.New(database.DB)
	if err != nil {
		return err
	}
	k.Start(ctx)
	defer k.Close()
	logger.Info("server: housekeeping scheduled", "jobs", k.Jobs())

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	logger.Info("server: stopped")
	return nil
}
