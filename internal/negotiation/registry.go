package negotiation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/storage"
	"github.com/haggleworks/negotiator/pkg/types"
)

// RunHandle is one live or finished run held by the registry.
type RunHandle struct {
	orch      *Orchestrator
	broker    *Broker
	cancel    context.CancelFunc
	startedAt time.Time
}

// RunID returns the run identifier.
func (h *RunHandle) RunID() string { return h.orch.RunID() }

// Broker returns the run's event broker.
func (h *RunHandle) Broker() *Broker { return h.broker }

// Cancel requests cooperative cancellation; the run observes it at the next
// turn boundary.
func (h *RunHandle) Cancel() { h.cancel() }

// Done is closed once the run's event stream has ended.
func (h *RunHandle) Done() <-chan struct{} { return h.broker.Done() }

// Status returns the run's lifecycle state. In_progress values are a
// snapshot; terminal values are stable.
func (h *RunHandle) Status() types.RunStatus { return h.orch.Status() }

// StartedAt returns when the run was launched.
func (h *RunHandle) StartedAt() time.Time { return h.startedAt }

// RegistryConfig configures the run registry.
type RegistryConfig struct {
	Sink   storage.Sink // Optional; terminal results are teed here
	Logger *zap.Logger
}

// Registry owns every run launched by this process. Finished runs stay
// registered so their status and event history remain queryable.
type Registry struct {
	sink   storage.Sink
	logger *zap.Logger

	mu   sync.RWMutex
	runs map[string]*RunHandle

	wg sync.WaitGroup
}

// NewRegistry creates an empty run registry.
func NewRegistry(cfg *RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		sink:   cfg.Sink,
		logger: logger,
		runs:   make(map[string]*RunHandle),
	}
}

// Start validates the spec, launches the run, and registers it. The parent
// context bounds the run's lifetime; Cancel on the handle narrows it further.
func (r *Registry) Start(ctx context.Context, spec *RunSpec) (*RunHandle, error) {
	orch, err := New(spec)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	stream := orch.Start(runCtx)
	broker := NewBroker(orch.RunID(), stream, r.logger)

	handle := &RunHandle{
		orch:      orch,
		broker:    broker,
		cancel:    cancel,
		startedAt: time.Now(),
	}

	r.mu.Lock()
	r.runs[orch.RunID()] = handle
	r.mu.Unlock()

	r.wg.Add(1)
	go r.finalize(handle)

	r.logger.Info("run-registered",
		zap.String("run-id", orch.RunID()),
		zap.Int("sellers", len(spec.Sellers)))

	return handle, nil
}

// finalize waits for the run to end, releases its context, and tees the
// terminal result to the sink.
func (r *Registry) finalize(handle *RunHandle) {
	defer r.wg.Done()

	<-handle.broker.Done()
	handle.cancel()

	if r.sink == nil {
		return
	}

	runID := handle.RunID()

	// Sink writes get their own deadline; the run context is already dead.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if complete := lastCompleteEvent(handle.broker.History()); complete != nil {
		err := r.sink.StoreOutcome(ctx, runID, complete)
		if err != nil {
			r.logger.Error("store-outcome-failed",
				zap.String("run-id", runID),
				zap.Error(err))
		}
	}

	err := r.sink.StoreTranscript(ctx, runID, handle.orch.Transcript())
	if err != nil {
		r.logger.Error("store-transcript-failed",
			zap.String("run-id", runID),
			zap.Error(err))
	}
}

func lastCompleteEvent(history []types.Event) *types.CompleteEvent {
	for i := len(history) - 1; i >= 0; i-- {
		if complete, ok := history[i].(*types.CompleteEvent); ok {
			return complete
		}
	}

	return nil
}

// Get looks up a run by ID.
func (r *Registry) Get(runID string) (*RunHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.runs[runID]

	return handle, ok
}

// List returns the registered run handles in no particular order.
func (r *Registry) List() []*RunHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*RunHandle, 0, len(r.runs))
	for _, h := range r.runs {
		out = append(out, h)
	}

	return out
}

// CancelAll requests cancellation of every registered run.
func (r *Registry) CancelAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.runs {
		h.cancel()
	}
}

// Wait blocks until every launched run has finished and its results are
// flushed, or the context expires.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
