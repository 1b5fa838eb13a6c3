package agents

import (
	"fmt"
	"strings"

	"github.com/haggleworks/negotiator/internal/mention"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/pkg/types"
)

// PromptBuilder renders the opaque message sequences sent to the model.
// Agents are pure with respect to prompt wording; swapping the builder
// changes the words without touching turn mechanics.
type PromptBuilder interface {
	BuyerPrompt(view *types.RunView) []provider.ChatMessage
	SellerPrompt(view *types.RunView, seller types.SellerProfile, item types.InventoryItem) []provider.ChatMessage
}

// DefaultPromptBuilder renders compact negotiation prompts. The history
// window bounds how much conversation is replayed per turn.
type DefaultPromptBuilder struct {
	HistoryWindow int
	MinRounds     int
}

// NewDefaultPromptBuilder creates a builder with a 12-message history window.
func NewDefaultPromptBuilder(minRounds int) *DefaultPromptBuilder {
	return &DefaultPromptBuilder{HistoryWindow: 12, MinRounds: minRounds}
}

// BuyerPrompt renders the buyer's turn: constraints, active sellers, and the
// recent conversation, with the current target seller called out.
func (b *DefaultPromptBuilder) BuyerPrompt(view *types.RunView) []provider.ChatMessage {
	var sys strings.Builder

	fmt.Fprintf(&sys, "You are %s, a buyer negotiating for %d units of %s.\n",
		view.BuyerName, view.Constraints.QuantityNeeded, view.Constraints.ItemName)
	fmt.Fprintf(&sys, "Acceptable price per unit: %.2f to %.2f.\n",
		view.Constraints.MinPricePerUnit, view.Constraints.MaxPricePerUnit)

	if view.Constraints.BudgetPerItem != nil {
		fmt.Fprintf(&sys, "Total budget: %.2f.\n", *view.Constraints.BudgetPerItem)
	}

	// Handles are advertised in their normalized form so the model only ever
	// learns mentions ParseMentions can resolve.
	sys.WriteString("Sellers at the table: ")
	for i, s := range view.ActiveSellers {
		if i > 0 {
			sys.WriteString(", ")
		}
		fmt.Fprintf(&sys, "@%s (%s)", mention.NormalizeHandle(s.DisplayName), s.DisplayName)
	}
	sys.WriteString(".\n")

	if target, ok := view.SellerByID(view.TargetSeller); ok {
		fmt.Fprintf(&sys, "Address %s directly this turn.\n", target.DisplayName)
	}

	if b.MinRounds > 0 {
		fmt.Fprintf(&sys, "Negotiate for at least %d rounds before settling.\n", b.MinRounds)
	}

	sys.WriteString("Reply with one short message. Mention sellers with @handles.")

	msgs := []provider.ChatMessage{{Role: provider.RoleSystem, Content: sys.String()}}

	return append(msgs, renderHistory(view.HistoryWindow(b.HistoryWindow), "")...)
}

// SellerPrompt renders a seller's turn with its private inventory and only
// the conversation it is allowed to see.
func (b *DefaultPromptBuilder) SellerPrompt(view *types.RunView, seller types.SellerProfile, item types.InventoryItem) []provider.ChatMessage {
	var sys strings.Builder

	fmt.Fprintf(&sys, "You are %s, a seller negotiating with buyer %s over %s.\n",
		seller.DisplayName, view.BuyerName, item.ItemName)
	fmt.Fprintf(&sys, "Your list price is %.2f per unit. Never go below %.2f. You have %d units.\n",
		item.SellingPrice, item.LeastPrice, item.QuantityAvailable)
	fmt.Fprintf(&sys, "Your priority is %s. Speak in a %s tone.\n", seller.Priority, seller.Style)
	sys.WriteString("To make an offer, include exactly one JSON object like ")
	sys.WriteString(`{"offer": {"price": 9.50, "quantity": 100}} in your reply.`)

	history := view.HistoryFor(seller.SellerID)
	if n := b.HistoryWindow; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}

	msgs := []provider.ChatMessage{{Role: provider.RoleSystem, Content: sys.String()}}

	return append(msgs, renderHistory(history, seller.SellerID)...)
}

// renderHistory converts conversation messages to chat roles. From a seller's
// perspective its own messages are assistant turns; everything else is user.
func renderHistory(history []types.Message, selfSellerID string) []provider.ChatMessage {
	out := make([]provider.ChatMessage, 0, len(history))

	for _, m := range history {
		role := provider.RoleUser
		if selfSellerID != "" && m.SenderType == types.SenderSeller && m.SenderID == selfSellerID {
			role = provider.RoleAssistant
		}

		out = append(out, provider.ChatMessage{
			Role:    role,
			Content: fmt.Sprintf("[%s] %s", m.SenderID, m.Content),
		})
	}

	return out
}
