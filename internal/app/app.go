// Package app wires configuration, the provider, storage and the HTTP
// surface into a running negotiation service.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/negotiation"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/internal/storage"
	"github.com/haggleworks/negotiator/pkg/cache"
	"github.com/haggleworks/negotiator/pkg/config"
	"github.com/haggleworks/negotiator/pkg/healthprobe"
	"github.com/haggleworks/negotiator/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	opts          *Options
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	llm           provider.Provider
	generateCache cache.Cache
	registry      *negotiation.Registry
	runs          *runService
	sink          storage.Sink
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SkipProviderPing bool // For tests and offline scenario runs
}

// RunService exposes the run management surface for in-process callers (the
// one-shot CLI drives runs through the same path the HTTP API uses).
func (a *App) RunService() httpserver.RunService {
	return a.runs
}
