// Package agents implements the buyer and seller turn contracts on top of
// the provider abstraction.
package agents

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/mention"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/internal/sanitize"
	"github.com/haggleworks/negotiator/pkg/types"
)

// BuyerFallbackMessage replaces buyer output that sanitizes down to nothing.
const BuyerFallbackMessage = "Let me review the current offers and get back to you."

// BuyerTurn is the buyer's contribution to one exchange.
type BuyerTurn struct {
	Content          string
	MentionedSellers []string
}

// Buyer drives the single buyer agent. One turn renders a prompt, calls the
// provider, sanitizes the output and extracts mentions.
type Buyer struct {
	name     string
	provider provider.Provider
	prompts  PromptBuilder
	params   provider.Params
	logger   *zap.Logger
}

// BuyerConfig configures the buyer agent.
type BuyerConfig struct {
	Name     string
	Provider provider.Provider
	Prompts  PromptBuilder
	Params   provider.Params
	Logger   *zap.Logger
}

// NewBuyer creates the buyer agent. Temperature defaults to 0 for
// reproducible turns unless the config overrides it.
func NewBuyer(cfg BuyerConfig) *Buyer {
	if cfg.Params.MaxTokens == 0 {
		cfg.Params.MaxTokens = 256
	}

	return &Buyer{
		name:     cfg.Name,
		provider: cfg.Provider,
		prompts:  cfg.Prompts,
		params:   cfg.Params,
		logger:   cfg.Logger,
	}
}

// Name returns the buyer's display name.
func (b *Buyer) Name() string { return b.name }

// Turn produces the buyer's message for the current exchange. Provider
// failures surface as a typed AgentError; the orchestrator treats them as
// fatal because the buyer is singular and indispensable.
func (b *Buyer) Turn(ctx context.Context, view *types.RunView) (*BuyerTurn, error) {
	start := time.Now()

	result, err := b.provider.Generate(ctx, b.prompts.BuyerPrompt(view), b.params)

	TurnDurationSeconds.WithLabelValues("buyer").Observe(time.Since(start).Seconds())

	if err != nil {
		TurnErrorsTotal.WithLabelValues("buyer").Inc()
		b.logger.Error("buyer-turn-failed",
			zap.String("run-id", view.RunID),
			zap.Int("round", view.Round),
			zap.Error(err))

		return nil, types.NewAgentError(types.RoleBuyer, "", err)
	}

	content := sanitize.Sanitize(result.Text, sanitize.RoleBuyer)
	if content == "" {
		content = BuyerFallbackMessage
	}

	mentions := mention.ParseMentions(content, view.ActiveSellers)

	b.logger.Debug("buyer-turn-complete",
		zap.String("run-id", view.RunID),
		zap.Int("round", view.Round),
		zap.String("target-seller", view.TargetSeller),
		zap.Int("mentions", len(mentions)))

	return &BuyerTurn{Content: content, MentionedSellers: mentions}, nil
}
