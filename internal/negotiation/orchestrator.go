// Package negotiation implements the round-robin negotiation state machine.
package negotiation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/agents"
	"github.com/haggleworks/negotiator/internal/decision"
	"github.com/haggleworks/negotiator/pkg/types"
)

const defaultEventBuffer = 64

// Orchestrator drives one negotiation run: it sequences exchanges, owns the
// run state, and emits the event stream. Turns within a run are strictly
// sequential; the serialization keeps event ordering deterministic and each
// seller's view of history consistent.
type Orchestrator struct {
	spec   *RunSpec
	state  *runState
	ids    *idGenerator
	engine *decision.Engine
	events chan types.Event
	logger *zap.Logger

	// Bounds in-flight seller responses. Canonical mode holds the limit at
	// one, which degenerates to strict sequential visitation.
	sellerSlots chan struct{}
}

// New validates the spec and builds an orchestrator. A ConfigError surfaces
// here, synchronously, before any event is emitted.
func New(spec *RunSpec) (*Orchestrator, error) {
	err := spec.Validate()
	if err != nil {
		return nil, err
	}

	ids := newIDGenerator(spec.Seed)

	if spec.RunID == "" {
		spec.RunID = ids.next("run")
	}

	logger := spec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	buffer := spec.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	return &Orchestrator{
		spec:        spec,
		state:       newRunState(spec),
		ids:         ids,
		engine:      spec.Engine,
		events:      make(chan types.Event, buffer),
		logger:      logger,
		sellerSlots: make(chan struct{}, spec.ConcurrencyLimit),
	}, nil
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string { return o.spec.RunID }

// Start launches the run and returns its event stream. The stream ends with
// exactly one terminal event (negotiation_complete or a non-recoverable
// error) and is closed afterwards.
func (o *Orchestrator) Start(ctx context.Context) <-chan types.Event {
	go o.run(ctx)

	return o.events
}

func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.events)

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator-panic",
				zap.String("run-id", o.spec.RunID),
				zap.Any("panic", r))
			o.failRun(fmt.Sprintf("internal error: %v", r))
		}

		RunDurationSeconds.Observe(time.Since(start).Seconds())
		RunsTotal.WithLabelValues(string(o.state.status)).Inc()
	}()

	err := o.state.setStatus(types.RunInProgress)
	if err != nil {
		o.failRun(err.Error())
		return
	}

	o.logger.Info("negotiation-starting",
		zap.String("run-id", o.spec.RunID),
		zap.Int("max-rounds", o.spec.MaxRounds),
		zap.Int("sellers", len(o.spec.Sellers)),
		zap.Bool("seeded", o.spec.Seed != nil))

	for round := 0; round < o.spec.MaxRounds; round++ {
		o.state.currentRound = round

		done, failed := o.runRound(ctx, round)
		if failed {
			return
		}

		if done {
			return
		}
	}

	// All rounds exhausted without a decision.
	o.completeRun(&types.NegotiationOutcome{
		TotalRounds: o.spec.MaxRounds,
		Reason:      "Max rounds reached without an acceptable offer",
		DecidedAt:   time.Now(),
	})
}

// runRound visits every active seller once, then consults the decision
// engine. Returns done=true when the run reached a terminal state with a
// decision, failed=true when it terminated on a fatal error or cancellation.
func (o *Orchestrator) runRound(ctx context.Context, round int) (done, failed bool) {
	for idx, seller := range o.spec.Sellers {
		if o.cancelled(ctx, round) {
			return false, true
		}

		sellerID := seller.Profile().SellerID

		ok, fatal := o.runExchange(ctx, round, idx, seller)
		if fatal {
			return false, true
		}

		if !ok {
			// Recoverable seller failure: the error event is already out,
			// the exchange counter untouched. Move on.
			o.logger.Warn("seller-skipped-for-round",
				zap.String("run-id", o.spec.RunID),
				zap.String("seller-id", sellerID),
				zap.Int("round", round))
			continue
		}
	}

	outcome, decided := o.engine.Decide(decision.Input{
		RunID:        o.spec.RunID,
		Constraints:  o.spec.Constraints,
		Offers:       o.state.pendingOffers(),
		Sellers:      o.sellerIndex(),
		CurrentRound: round + 1,
		MaxRounds:    o.spec.MaxRounds,
	})
	if decided {
		o.completeRun(outcome)
		return true, false
	}

	return false, false
}

// runExchange performs one (buyer-message, seller-response) pair. Returns
// ok=false on a recoverable seller failure and fatal=true when the run must
// stop (buyer failure, invariant violation, cancellation mid-exchange).
func (o *Orchestrator) runExchange(ctx context.Context, round, sellerIdx int, seller *agents.Seller) (ok, fatal bool) {
	profile := seller.Profile()

	// Buyer addresses the current seller.
	turn, err := o.spec.Buyer.Turn(ctx, o.state.view(profile.SellerID))
	if err != nil {
		// A failure caused by cancellation is reported as the cancellation,
		// not as an agent error.
		if o.cancelled(ctx, round) {
			return false, true
		}

		o.emitError(round, types.ErrorAgentBuyer, "", err, false)
		o.failRunSilently()
		return false, true
	}

	buyerMsg := types.Message{
		MessageID:        o.ids.next("msg"),
		Round:            round,
		TurnIndex:        len(o.state.messages),
		SenderType:       types.SenderBuyer,
		SenderID:         o.spec.Buyer.Name(),
		Content:          turn.Content,
		MentionedSellers: turn.MentionedSellers,
		Visibility:       []string{types.VisibilityAll},
		Timestamp:        time.Now(),
	}

	err = o.state.appendMessage(buyerMsg)
	if err != nil {
		o.emitError(round, types.ErrorAgentGraph, "", err, false)
		o.failRunSilently()
		return false, true
	}

	o.emit(&types.BuyerMessageEvent{
		EventBase:   types.NewEventBase(o.spec.RunID, types.EventBuyerMessage, buyerMsg.Timestamp),
		Round:       round,
		SellerID:    profile.SellerID,
		SellerIndex: sellerIdx,
		MessageID:   buyerMsg.MessageID,
		Content:     buyerMsg.Content,
	})

	if o.cancelled(ctx, round) {
		return false, true
	}

	// Seller responds under the concurrency guard.
	o.sellerSlots <- struct{}{}
	resp, err := seller.Respond(ctx, o.state.view(profile.SellerID))
	<-o.sellerSlots

	if err != nil {
		if o.cancelled(ctx, round) {
			return false, true
		}

		o.emitError(round, types.ErrorAgentSeller, profile.SellerID, err, true)
		return false, false
	}

	// Seller replies are scoped to their author: rivals never see them,
	// while the buyer reads the unfiltered history.
	sellerMsg := types.Message{
		MessageID:  o.ids.next("msg"),
		Round:      round,
		TurnIndex:  len(o.state.messages),
		SenderType: types.SenderSeller,
		SenderID:   profile.SellerID,
		Content:    resp.Content,
		Visibility: []string{types.SellerScope(profile.SellerID)},
		Timestamp:  time.Now(),
	}

	err = o.state.appendMessage(sellerMsg)
	if err != nil {
		o.emitError(round, types.ErrorAgentGraph, "", err, false)
		o.failRunSilently()
		return false, true
	}

	var (
		offerPayload *types.OfferPayload
		violations   []string
	)

	if resp.Offer != nil {
		newOffer := &types.Offer{
			OfferID:        o.ids.next("offer"),
			SellerID:       profile.SellerID,
			ItemID:         seller.Item().ItemID,
			Price:          resp.Offer.Price,
			Quantity:       resp.Offer.Quantity,
			Status:         types.OfferPending,
			CreatedAtRound: round,
		}

		o.state.appendOffer(newOffer)
		offerPayload = types.NewOfferPayload(newOffer)

		if resp.Offer.Clamped {
			violations = append(violations, "offer_clamped_to_bounds")
		}
	}

	o.state.exchanges[profile.SellerID]++

	o.emit(&types.SellerResponseEvent{
		EventBase:      types.NewEventBase(o.spec.RunID, types.EventSellerResponse, sellerMsg.Timestamp),
		Round:          round,
		SellerID:       profile.SellerID,
		ExchangeNumber: o.state.exchanges[profile.SellerID],
		MessageID:      sellerMsg.MessageID,
		Content:        sellerMsg.Content,
		Offer:          offerPayload,
		Violations:     violations,
	})

	o.emit(&types.HeartbeatEvent{
		EventBase:          types.NewEventBase(o.spec.RunID, types.EventHeartbeat, time.Now()),
		Round:              round,
		CurrentSeller:      profile.SellerID,
		SellerIndex:        sellerIdx,
		ExchangesCompleted: o.state.exchangesSnapshot(),
		OffersCount:        len(o.state.offers),
		MessagesCount:      len(o.state.messages),
	})

	return true, false
}

// cancelled checks the caller's cancellation signal at a turn boundary and,
// when tripped, emits the terminal cancellation event.
func (o *Orchestrator) cancelled(ctx context.Context, round int) bool {
	if ctx.Err() == nil {
		return false
	}

	o.logger.Info("negotiation-cancelled", zap.String("run-id", o.spec.RunID))

	o.emit(&types.ErrorEvent{
		EventBase:   types.NewEventBase(o.spec.RunID, types.EventError, time.Now()),
		Round:       round,
		Agent:       types.ErrorAgentGraph,
		Error:       "cancelled",
		Recoverable: false,
	})
	o.failRunSilently()

	return true
}

func (o *Orchestrator) completeRun(outcome *types.NegotiationOutcome) {
	err := o.state.setStatus(types.RunCompleted)
	if err != nil {
		o.failRun(err.Error())
		return
	}

	o.logger.Info("negotiation-complete",
		zap.String("run-id", o.spec.RunID),
		zap.String("outcome", outcome.String()))

	RoundsPerRun.Observe(float64(outcome.TotalRounds))

	o.emit(&types.CompleteEvent{
		EventBase:          types.NewEventBase(o.spec.RunID, types.EventComplete, outcome.DecidedAt),
		TotalRounds:        outcome.TotalRounds,
		ExchangesCompleted: o.state.exchangesSnapshot(),
		WinnerID:           outcome.WinnerID,
		WinningOffer:       types.NewOfferPayload(outcome.WinningOffer),
		Reason:             outcome.Reason,
	})
}

// failRun emits a fatal graph error event and marks the run failed.
func (o *Orchestrator) failRun(reason string) {
	o.emit(&types.ErrorEvent{
		EventBase:   types.NewEventBase(o.spec.RunID, types.EventError, time.Now()),
		Round:       o.state.currentRound,
		Agent:       types.ErrorAgentGraph,
		Error:       reason,
		Recoverable: false,
	})
	o.failRunSilently()
}

// failRunSilently marks the run failed after the error event already went out.
func (o *Orchestrator) failRunSilently() {
	if o.state.status == types.RunInProgress || o.state.status == types.RunPending {
		if o.state.status == types.RunPending {
			_ = o.state.setStatus(types.RunInProgress)
		}
		_ = o.state.setStatus(types.RunFailed)
	}
}

func (o *Orchestrator) emitError(round int, agent types.ErrorAgent, sellerID string, err error, recoverable bool) {
	o.logger.Error("negotiation-agent-error",
		zap.String("run-id", o.spec.RunID),
		zap.String("agent", string(agent)),
		zap.String("seller-id", sellerID),
		zap.Bool("recoverable", recoverable),
		zap.Error(err))

	AgentErrorsTotal.WithLabelValues(string(agent)).Inc()

	o.emit(&types.ErrorEvent{
		EventBase:   types.NewEventBase(o.spec.RunID, types.EventError, time.Now()),
		Round:       round,
		Agent:       agent,
		SellerID:    sellerID,
		Error:       err.Error(),
		Recoverable: recoverable,
	})
}

// emit delivers one event to the stream. The send blocks: the consumer side
// (the stream broker) is responsible for never stalling the producer.
func (o *Orchestrator) emit(event types.Event) {
	EventsEmittedTotal.WithLabelValues(string(event.Kind())).Inc()
	o.events <- event
}

func (o *Orchestrator) sellerIndex() map[string]types.SellerProfile {
	out := make(map[string]types.SellerProfile, len(o.spec.Sellers))
	for _, s := range o.spec.Sellers {
		p := s.Profile()
		out[p.SellerID] = p
	}

	return out
}

// Status returns the run's current lifecycle state. Only meaningful after
// the event stream has ended; the orchestrator goroutine owns the state
// while the run is live.
func (o *Orchestrator) Status() types.RunStatus {
	return o.state.status
}

// Outcome helpers for wrappers that tee terminal results to storage.

// Transcript returns the full message history. Call only after the stream
// has ended.
func (o *Orchestrator) Transcript() []types.Message {
	return o.state.messages
}

// Offers returns the full offer history. Call only after the stream has ended.
func (o *Orchestrator) Offers() []*types.Offer {
	return o.state.offers
}
