package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/agents"
	"github.com/haggleworks/negotiator/internal/decision"
	"github.com/haggleworks/negotiator/internal/negotiation"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/internal/selection"
	"github.com/haggleworks/negotiator/pkg/config"
	"github.com/haggleworks/negotiator/pkg/httpserver"
	"github.com/haggleworks/negotiator/pkg/types"
)

const defaultBuyerName = "buyer"

// runService implements httpserver.RunService on top of the run registry.
// Each StartRun builds fresh agents against the shared provider; run state is
// never shared between runs.
type runService struct {
	// appCtx bounds run lifetimes: runs outlive the HTTP request that
	// launched them and die with the application.
	appCtx   context.Context
	cfg      *config.Config
	llm      provider.Provider
	registry *negotiation.Registry
	logger   *zap.Logger
}

func newRunService(
	appCtx context.Context,
	cfg *config.Config,
	llm provider.Provider,
	registry *negotiation.Registry,
	logger *zap.Logger,
) *runService {
	return &runService{
		appCtx:   appCtx,
		cfg:      cfg,
		llm:      llm,
		registry: registry,
		logger:   logger,
	}
}

// StartRun admits sellers against the buyer's constraints, assembles the
// agents, and launches the run. The request context only covers validation
// and launch; the run itself is bound to the application context.
func (s *runService) StartRun(_ context.Context, req *httpserver.StartRunRequest) (string, error) {
	constraints := req.Constraints.ToConstraints()

	err := constraints.Validate()
	if err != nil {
		return "", &types.ConfigError{Field: "constraints", Detail: err.Error()}
	}

	candidates := make([]selection.Candidate, 0, len(req.Sellers))
	for _, sp := range req.Sellers {
		candidates = append(candidates, selection.Candidate{
			Profile:   sp.ToProfile(),
			Inventory: sp.ToInventory(),
		})
	}

	result := selection.Select(constraints, candidates, s.logger)
	if len(result.Admitted) == 0 {
		return "", fmt.Errorf("%w: %d candidate(s) skipped", types.ErrNoSellersAvailable, len(result.Skipped))
	}

	maxRounds := req.MaxRounds
	if maxRounds <= 0 {
		maxRounds = s.cfg.MaxRounds
	}

	minRounds := req.MinRounds
	if minRounds <= 0 {
		minRounds = s.cfg.MinRounds
	}

	seed := req.Seed
	if seed == nil {
		seed = s.cfg.Seed
	}

	buyerName := req.BuyerName
	if buyerName == "" {
		buyerName = defaultBuyerName
	}

	prompts := agents.NewDefaultPromptBuilder(minRounds)
	params := provider.Params{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	buyer := agents.NewBuyer(agents.BuyerConfig{
		Name:     buyerName,
		Provider: s.llm,
		Prompts:  prompts,
		Params:   params,
		Logger:   s.logger,
	})

	sellers := make([]*agents.Seller, 0, len(result.Admitted))
	for _, admitted := range result.Admitted {
		sellers = append(sellers, agents.NewSeller(agents.SellerConfig{
			Profile:  admitted.Profile,
			Item:     admitted.Item,
			Provider: s.llm,
			Prompts:  prompts,
			Params:   params,
			Logger:   s.logger,
		}))
	}

	engine := decision.New(decision.Config{
		MinRounds: minRounds,
		Policy:    decision.Policy(s.cfg.DecisionPolicy),
		Logger:    s.logger,
	})

	handle, err := s.registry.Start(s.appCtx, &negotiation.RunSpec{
		Constraints:      constraints,
		Buyer:            buyer,
		Sellers:          sellers,
		Engine:           engine,
		MaxRounds:        maxRounds,
		ConcurrencyLimit: s.cfg.ParallelSellerLimit,
		Seed:             seed,
		Logger:           s.logger,
	})
	if err != nil {
		return "", err
	}

	return handle.RunID(), nil
}

// RunInfo reports one run's current state.
func (s *runService) RunInfo(runID string) (*httpserver.RunInfo, bool) {
	handle, ok := s.registry.Get(runID)
	if !ok {
		return nil, false
	}

	return runInfo(handle), true
}

// ListRuns reports every run known to this process.
func (s *runService) ListRuns() []httpserver.RunInfo {
	handles := s.registry.List()

	out := make([]httpserver.RunInfo, 0, len(handles))
	for _, h := range handles {
		out = append(out, *runInfo(h))
	}

	return out
}

// CancelRun requests cooperative cancellation.
func (s *runService) CancelRun(runID string) bool {
	handle, ok := s.registry.Get(runID)
	if !ok {
		return false
	}

	s.logger.Info("run-cancel-requested", zap.String("run-id", runID))
	handle.Cancel()

	return true
}

// Subscribe attaches to a run's event stream.
func (s *runService) Subscribe(runID string) ([]types.Event, <-chan types.Event, func(), bool) {
	handle, ok := s.registry.Get(runID)
	if !ok {
		return nil, nil, nil, false
	}

	replay, live := handle.Broker().Subscribe()
	unsubscribe := func() { handle.Broker().Unsubscribe(live) }

	return replay, live, unsubscribe, true
}

func runInfo(h *negotiation.RunHandle) *httpserver.RunInfo {
	return &httpserver.RunInfo{
		RunID:     h.RunID(),
		Status:    string(h.Status()),
		StartedAt: h.StartedAt(),
		Events:    len(h.Broker().History()),
	}
}
