// Package decision scores pending offers and decides when a negotiation ends.
package decision

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

// Flexibility margin on the buyer's max price: offers up to Max*1.10 are
// admissible but rank below in-budget offers through the price factor.
const buyerFlexFactor = 1.10

// closeMargin is the score gap under which a decision is logged as close.
const closeMargin = 5.0

// Factor caps for the weighted score.
const (
	priceCap          = 40.0
	responsivenessCap = 30.0
	roundsCap         = 20.0
	profileCap        = 10.0
)

// Policy selects the decision rule.
type Policy string

const (
	// PolicyScore is the canonical multi-factor weighted score.
	PolicyScore Policy = "score"
	// PolicyLowestPrice picks the cheapest valid offer. Retained as a
	// configured policy, not a second code path through scoring.
	PolicyLowestPrice Policy = "lowest_price"
)

// Config holds engine configuration.
type Config struct {
	MinRounds int // Engine declines to decide before this many completed rounds
	Policy    Policy
	Logger    *zap.Logger
}

// Engine evaluates pending offers at the end of each full round.
type Engine struct {
	minRounds int
	policy    Policy
	logger    *zap.Logger
}

// New creates a decision engine.
func New(cfg Config) *Engine {
	if cfg.Policy == "" {
		cfg.Policy = PolicyScore
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Engine{
		minRounds: cfg.MinRounds,
		policy:    cfg.Policy,
		logger:    cfg.Logger,
	}
}

// Input is the run snapshot the engine decides over. CurrentRound is the
// 1-based count of completed rounds.
type Input struct {
	RunID        string
	Constraints  types.BuyerConstraints
	Offers       []*types.Offer
	Sellers      map[string]types.SellerProfile
	CurrentRound int
	MaxRounds    int
}

// ScoreBreakdown records the factor contributions for a scored offer.
type ScoreBreakdown struct {
	Price          float64
	Responsiveness float64
	Rounds         float64
	Profile        float64
}

// Total sums the factor contributions.
func (s ScoreBreakdown) Total() float64 {
	return s.Price + s.Responsiveness + s.Rounds + s.Profile
}

type scored struct {
	offer     *types.Offer
	breakdown ScoreBreakdown
}

// Decide evaluates pending offers against the buyer constraints. It returns
// (nil, false) when no decision is due: below the min-rounds gate, or no
// valid offer exists. On a decision the winning offer is flipped to accepted.
func (e *Engine) Decide(in Input) (*types.NegotiationOutcome, bool) {
	if in.CurrentRound < e.minRounds {
		e.logger.Debug("decision-deferred-min-rounds",
			zap.String("run-id", in.RunID),
			zap.Int("current-round", in.CurrentRound),
			zap.Int("min-rounds", e.minRounds))
		return nil, false
	}

	valid := e.validOffers(in)
	if len(valid) == 0 {
		DecisionsTotal.WithLabelValues("no_valid_offer").Inc()
		return nil, false
	}

	var best scored
	if e.policy == PolicyLowestPrice {
		best = pickLowestPrice(valid)
	} else {
		best = e.pickByScore(in.RunID, valid)
	}

	best.offer.Status = types.OfferAccepted
	DecisionsTotal.WithLabelValues("winner").Inc()
	WinningScore.Observe(best.breakdown.Total())

	outcome := &types.NegotiationOutcome{
		WinnerID:     best.offer.SellerID,
		WinningOffer: best.offer,
		TotalRounds:  in.CurrentRound,
		Reason:       e.reason(best),
		DecidedAt:    time.Now(),
	}

	e.logger.Info("negotiation-decided",
		zap.String("run-id", in.RunID),
		zap.String("winner-id", best.offer.SellerID),
		zap.Float64("price", best.offer.Price),
		zap.Int("quantity", best.offer.Quantity),
		zap.Float64("score", best.breakdown.Total()))

	return outcome, true
}

// AnalyzeOffers is a convenience overlay over Decide for callers holding a
// bare offer list instead of run state.
func (e *Engine) AnalyzeOffers(
	constraints types.BuyerConstraints,
	offers []*types.Offer,
	sellers map[string]types.SellerProfile,
	currentRound, maxRounds int,
) (*types.NegotiationOutcome, bool) {
	return e.Decide(Input{
		Constraints:  constraints,
		Offers:       offers,
		Sellers:      sellers,
		CurrentRound: currentRound,
		MaxRounds:    maxRounds,
	})
}

// validOffers filters pending offers through the validity predicate and
// scores the survivors.
func (e *Engine) validOffers(in Input) []scored {
	firstOfferRound := make(map[string]int)
	for _, o := range in.Offers {
		if r, ok := firstOfferRound[o.SellerID]; !ok || o.CreatedAtRound < r {
			firstOfferRound[o.SellerID] = o.CreatedAtRound
		}
	}

	var out []scored

	for _, o := range in.Offers {
		if o.Status != types.OfferPending {
			continue
		}

		if !e.isValid(o, in.Constraints) {
			OffersRejectedTotal.WithLabelValues(rejectReason(o, in.Constraints)).Inc()
			continue
		}

		out = append(out, scored{
			offer:     o,
			breakdown: e.score(o, in, firstOfferRound[o.SellerID]+1),
		})
	}

	return out
}

func (e *Engine) isValid(o *types.Offer, c types.BuyerConstraints) bool {
	if o.Price < c.MinPricePerUnit || o.Price > c.MaxPricePerUnit*buyerFlexFactor {
		return false
	}

	if o.Quantity < c.QuantityNeeded {
		return false
	}

	if c.BudgetPerItem != nil && o.Total() > *c.BudgetPerItem {
		return false
	}

	return true
}

func rejectReason(o *types.Offer, c types.BuyerConstraints) string {
	switch {
	case o.Price < c.MinPricePerUnit || o.Price > c.MaxPricePerUnit*buyerFlexFactor:
		return "price_out_of_range"
	case o.Quantity < c.QuantityNeeded:
		return "insufficient_quantity"
	default:
		return "over_budget"
	}
}

// score computes the weighted 0-100 score. Factors are normalized to their
// cap; a zero denominator awards the full cap. firstOfferRound is 1-based.
func (e *Engine) score(o *types.Offer, in Input, firstOfferRound int) ScoreBreakdown {
	var b ScoreBreakdown

	priceRange := in.Constraints.MaxPricePerUnit - in.Constraints.MinPricePerUnit
	if priceRange <= 0 {
		b.Price = priceCap
	} else {
		b.Price = clampFactor(priceCap*(in.Constraints.MaxPricePerUnit-o.Price)/priceRange, priceCap)
	}

	if in.MaxRounds <= 0 {
		b.Responsiveness = responsivenessCap
		b.Rounds = roundsCap
	} else {
		b.Responsiveness = clampFactor(
			responsivenessCap*(1-float64(in.CurrentRound-1)/float64(in.MaxRounds)), responsivenessCap)
		b.Rounds = clampFactor(
			roundsCap*(1-float64(firstOfferRound-1)/float64(in.MaxRounds)), roundsCap)
	}

	if in.Sellers[o.SellerID].Priority == types.PriorityCustomerRetention {
		b.Profile = profileCap
	}

	return b
}

func clampFactor(v, cap float64) float64 {
	if v < 0 {
		return 0
	}

	if v > cap {
		return cap
	}

	return v
}

// pickByScore sorts by score desc, then price asc, then seller ID asc as a
// deterministic tiebreak, and logs when the top two are within the close
// margin.
func (e *Engine) pickByScore(runID string, valid []scored) scored {
	sort.SliceStable(valid, func(i, j int) bool {
		si, sj := valid[i].breakdown.Total(), valid[j].breakdown.Total()
		if si != sj {
			return si > sj
		}

		if valid[i].offer.Price != valid[j].offer.Price {
			return valid[i].offer.Price < valid[j].offer.Price
		}

		return valid[i].offer.SellerID < valid[j].offer.SellerID
	})

	if len(valid) > 1 {
		gap := valid[0].breakdown.Total() - valid[1].breakdown.Total()
		if gap <= closeMargin {
			e.logger.Info("close-decision",
				zap.String("run-id", runID),
				zap.String("top-seller", valid[0].offer.SellerID),
				zap.String("runner-up", valid[1].offer.SellerID),
				zap.Float64("gap", gap))
		}
	}

	return valid[0]
}

func pickLowestPrice(valid []scored) scored {
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].offer.Price != valid[j].offer.Price {
			return valid[i].offer.Price < valid[j].offer.Price
		}

		return valid[i].offer.SellerID < valid[j].offer.SellerID
	})

	return valid[0]
}

func (e *Engine) reason(best scored) string {
	return fmt.Sprintf(
		"Accepted offer from %s: %.2f per unit x %d units (total %.2f). Score %.1f (price %.1f, responsiveness %.1f, rounds %.1f, profile %.1f).",
		best.offer.SellerID,
		best.offer.Price,
		best.offer.Quantity,
		best.offer.Total(),
		best.breakdown.Total(),
		best.breakdown.Price,
		best.breakdown.Responsiveness,
		best.breakdown.Rounds,
		best.breakdown.Profile,
	)
}
