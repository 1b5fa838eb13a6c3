package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("provider-base-url", a.cfg.ProviderBaseURL),
		zap.String("provider-model", a.cfg.ProviderModel),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	a.startHTTPServer()

	a.pingProvider()

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	// Wait for shutdown signal
	return a.waitForShutdown()
}

func (a *App) startHTTPServer() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.httpServer.Start()
		if err != nil {
			a.logger.Error("http-server-error", zap.Error(err))
		}
	}()
}

// pingProvider probes the backend once at startup. An unreachable backend is
// logged, not fatal: runs started before it recovers fail on their own.
func (a *App) pingProvider() {
	if a.opts.SkipProviderPing {
		return
	}

	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	status := a.llm.Ping(ctx)
	if !status.Available {
		a.logger.Warn("provider-unreachable",
			zap.String("base-url", a.cfg.ProviderBaseURL),
			zap.String("detail", status.Detail))
		return
	}

	a.logger.Info("provider-reachable",
		zap.String("model", status.Model),
		zap.Duration("latency", status.Latency))
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
