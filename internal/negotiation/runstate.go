package negotiation

import (
	"time"

	"github.com/haggleworks/negotiator/pkg/types"
)

// runState is the mutable state of one run. Owned exclusively by the
// orchestrator goroutine; agents only ever see read-only views.
type runState struct {
	runID         string
	status        types.RunStatus
	currentRound  int
	constraints   types.BuyerConstraints
	buyerName     string
	activeSellers []types.SellerProfile
	exchanges     map[string]int
	messages      []types.Message
	offers        []*types.Offer
	maxRounds     int
	createdAt     time.Time
}

func newRunState(spec *RunSpec) *runState {
	profiles := make([]types.SellerProfile, len(spec.Sellers))
	exchanges := make(map[string]int, len(spec.Sellers))

	for i, s := range spec.Sellers {
		profiles[i] = s.Profile()
		exchanges[profiles[i].SellerID] = 0
	}

	return &runState{
		runID:         spec.RunID,
		status:        types.RunPending,
		constraints:   spec.Constraints,
		buyerName:     spec.Buyer.Name(),
		activeSellers: profiles,
		exchanges:     exchanges,
		maxRounds:     spec.MaxRounds,
		createdAt:     time.Now(),
	}
}

// appendMessage adds a message, enforcing the turn-index invariant: the
// index of every appended message equals the prior history length.
func (r *runState) appendMessage(m types.Message) error {
	if m.TurnIndex != len(r.messages) {
		return types.Invariantf("message turn index %d != history length %d", m.TurnIndex, len(r.messages))
	}

	r.messages = append(r.messages, m)

	return nil
}

func (r *runState) appendOffer(o *types.Offer) {
	r.offers = append(r.offers, o)
}

// setStatus applies the pending -> in_progress -> terminal transition rule.
// Terminal states are write-once.
func (r *runState) setStatus(next types.RunStatus) error {
	switch r.status {
	case types.RunPending:
		if next != types.RunInProgress {
			return types.Invariantf("illegal status transition %s -> %s", r.status, next)
		}
	case types.RunInProgress:
		if next != types.RunCompleted && next != types.RunFailed {
			return types.Invariantf("illegal status transition %s -> %s", r.status, next)
		}
	default:
		return types.Invariantf("status %s is terminal", r.status)
	}

	r.status = next

	return nil
}

// view builds the read-only snapshot handed to agents for one turn.
func (r *runState) view(targetSeller string) *types.RunView {
	exchanges := make(map[string]int, len(r.exchanges))
	for k, v := range r.exchanges {
		exchanges[k] = v
	}

	history := make([]types.Message, len(r.messages))
	copy(history, r.messages)

	return &types.RunView{
		RunID:         r.runID,
		Round:         r.currentRound,
		MaxRounds:     r.maxRounds,
		BuyerName:     r.buyerName,
		Constraints:   r.constraints,
		ActiveSellers: r.activeSellers,
		TargetSeller:  targetSeller,
		History:       history,
		Exchanges:     exchanges,
	}
}

func (r *runState) exchangesSnapshot() map[string]int {
	out := make(map[string]int, len(r.exchanges))
	for k, v := range r.exchanges {
		out[k] = v
	}

	return out
}

// pendingOffers returns the offers the decision engine may still accept.
func (r *runState) pendingOffers() []*types.Offer {
	return r.offers
}
