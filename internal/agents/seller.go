package agents

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/offer"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/internal/sanitize"
	"github.com/haggleworks/negotiator/pkg/types"
)

// SellerFallbackMessage replaces seller output that sanitizes down to nothing.
const SellerFallbackMessage = "Give me a moment to check my stock and I will come back with numbers."

// SellerResponse is one seller's contribution to an exchange. Offer is nil
// when the reply carried no extractable offer.
type SellerResponse struct {
	Content string
	Offer   *offer.Extracted
}

// Seller drives one seller agent bound to its private inventory.
type Seller struct {
	profile  types.SellerProfile
	item     types.InventoryItem
	provider provider.Provider
	prompts  PromptBuilder
	params   provider.Params
	logger   *zap.Logger
}

// SellerConfig configures a seller agent.
type SellerConfig struct {
	Profile  types.SellerProfile
	Item     types.InventoryItem
	Provider provider.Provider
	Prompts  PromptBuilder
	Params   provider.Params
	Logger   *zap.Logger
}

// NewSeller creates a seller agent.
func NewSeller(cfg SellerConfig) *Seller {
	if cfg.Params.MaxTokens == 0 {
		cfg.Params.MaxTokens = 256
	}

	return &Seller{
		profile:  cfg.Profile,
		item:     cfg.Item,
		provider: cfg.Provider,
		prompts:  cfg.Prompts,
		params:   cfg.Params,
		logger:   cfg.Logger,
	}
}

// Profile returns the seller's public identity.
func (s *Seller) Profile() types.SellerProfile { return s.profile }

// Item returns the seller's inventory entry for this run.
func (s *Seller) Item() types.InventoryItem { return s.item }

// Respond produces this seller's reply to the buyer. The offer is extracted
// from the RAW model output before sanitization strips inline JSON, then
// clamped to the seller's bounds. Provider failures surface as a typed
// AgentError; the orchestrator skips the seller for the round.
func (s *Seller) Respond(ctx context.Context, view *types.RunView) (*SellerResponse, error) {
	start := time.Now()

	result, err := s.provider.Generate(ctx, s.prompts.SellerPrompt(view, s.profile, s.item), s.params)

	TurnDurationSeconds.WithLabelValues("seller").Observe(time.Since(start).Seconds())

	if err != nil {
		TurnErrorsTotal.WithLabelValues("seller").Inc()
		s.logger.Error("seller-turn-failed",
			zap.String("run-id", view.RunID),
			zap.String("seller-id", s.profile.SellerID),
			zap.Int("round", view.Round),
			zap.Error(err))

		return nil, types.NewAgentError(types.RoleSeller, s.profile.SellerID, err)
	}

	// Offers must come out of the raw text; sanitize removes inline JSON.
	extracted, hasOffer := offer.Extract(result.Text, &s.item)

	content := sanitize.Sanitize(result.Text, sanitize.RoleSeller)
	if content == "" {
		content = SellerFallbackMessage
	}

	resp := &SellerResponse{Content: content}
	if hasOffer {
		resp.Offer = extracted
		OffersExtractedTotal.Inc()

		if extracted.Clamped {
			OffersClampedTotal.Inc()
		}
	}

	s.logger.Debug("seller-turn-complete",
		zap.String("run-id", view.RunID),
		zap.String("seller-id", s.profile.SellerID),
		zap.Int("round", view.Round),
		zap.Bool("has-offer", hasOffer))

	return resp, nil
}
