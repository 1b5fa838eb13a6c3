package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Shutdown gracefully shuts down the application. Live runs are cancelled
// cooperatively and given time to flush their terminal results.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests first.
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Cancel live runs; their terminal events and sink writes still happen.
	a.registry.CancelAll()

	err = a.registry.Wait(shutdownCtx)
	if err != nil {
		a.logger.Warn("run-drain-timeout", zap.Error(err))
	}

	// Cancel context to signal anything still holding it.
	a.cancel()

	err = a.sink.Close()
	if err != nil {
		a.logger.Error("sink-close-error", zap.Error(err))
	}

	if a.generateCache != nil {
		a.generateCache.Close()
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
