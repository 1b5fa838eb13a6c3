package negotiation

import (
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/agents"
	"github.com/haggleworks/negotiator/internal/decision"
	"github.com/haggleworks/negotiator/pkg/types"
)

// RunSpec binds the agents, constraints and constants for one run.
type RunSpec struct {
	RunID       string // Assigned when empty
	Constraints types.BuyerConstraints
	Buyer       *agents.Buyer
	Sellers     []*agents.Seller // Visitation order is fixed at run start
	Engine      *decision.Engine

	MaxRounds        int
	ConcurrencyLimit int    // Bound on in-flight seller responses; 1 = strict sequential
	Seed             *int64 // Seeds the RNG and the ID sequence; nil = nondeterministic
	EventBuffer      int    // Event channel capacity; defaults to 64

	Logger *zap.Logger
}

// Validate checks the spec before any event is emitted.
func (s *RunSpec) Validate() error {
	err := s.Constraints.Validate()
	if err != nil {
		return &types.ConfigError{Field: "constraints", Detail: err.Error()}
	}

	if s.Buyer == nil {
		return &types.ConfigError{Field: "buyer", Detail: "buyer agent is required"}
	}

	if len(s.Sellers) == 0 {
		return &types.ConfigError{Field: "sellers", Detail: types.ErrNoSellersAvailable.Error()}
	}

	if s.Engine == nil {
		return &types.ConfigError{Field: "engine", Detail: "decision engine is required"}
	}

	if s.MaxRounds <= 0 {
		return &types.ConfigError{Field: "max_rounds", Detail: "must be positive"}
	}

	if s.ConcurrencyLimit < 1 {
		return &types.ConfigError{Field: "concurrency_limit", Detail: "must be at least 1"}
	}

	seen := make(map[string]struct{}, len(s.Sellers))
	for _, sl := range s.Sellers {
		id := sl.Profile().SellerID
		if _, dup := seen[id]; dup {
			return &types.ConfigError{Field: "sellers", Detail: "duplicate seller ID: " + id}
		}
		seen[id] = struct{}{}
	}

	return nil
}
