package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"pixforge/logger"
	"pixforge/routes"
)

const (
	cleanupInterval = 24 * time.Hour
	defaultMaxAge   = 30 * 24 * time.Hour
)

// historyStore is the part of the failure and success stores the cleanup
// routine needs.
type historyStore interface {
	CleanupOldRecords(maxAge time.Duration) (int, error)
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve run history, health and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Metrics.ServeAddr
			}

			s, err := openSession(false)
			if err != nil {
				return err
			}
			defer s.close()

			logger.Info("Starting cleanup routine (runs every 24 hours)")
			go cleanupRoutine(cmd.Context(), cleanupInterval, defaultMaxAge, map[string]historyStore{
				"success": s.success,
				"failure": s.failures,
			})

			mux := http.NewServeMux()
			h := &routes.Handlers{Failures: s.failures, Success: s.success, Metrics: s.metrics}
			h.Register(mux)

			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warnf("server shutdown: %v", err)
				}
			}()

			logger.Infof("pixforge server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default [metrics] serve_addr)")
	return cmd
}

// cleanupRoutine periodically deletes history records older than maxAge
func cleanupRoutine(ctx context.Context, interval, maxAge time.Duration, stores map[string]historyStore) {
	logger.Debugf("Cleanup routine started - will run every %v", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
			logger.Info("Running scheduled cleanup of old records")
			pruneStores(maxAge, stores)
			logger.Info("Scheduled cleanup completed")
		}
	}
}

// pruneStores cleans every store and returns the total number of deleted records.
func pruneStores(maxAge time.Duration, stores map[string]historyStore) int {
	total := 0
	for name, store := range stores {
		logger.Debugf("Cleaning up %s records older than %v", name, maxAge)
		n, err := store.CleanupOldRecords(maxAge)
		if err != nil {
			logger.Errorf("Failed to cleanup old %s records: %v", name, err)
			continue
		}
		logger.Infof("Removed %d old %s records", n, name)
		total += n
	}
	return total
}
