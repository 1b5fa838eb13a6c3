package agents_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/agents"
	"github.com/haggleworks/negotiator/internal/mention"
	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/internal/testutil"
	"github.com/haggleworks/negotiator/pkg/types"
)

func view(target string) *types.RunView {
	return &types.RunView{
		RunID:       "run_1",
		Round:       0,
		MaxRounds:   10,
		BuyerName:   "alex",
		Constraints: testutil.ApplesConstraints(),
		ActiveSellers: []types.SellerProfile{
			testutil.Profile("seller_1", "FreshFarms", types.PriorityCustomerRetention),
			testutil.Profile("seller_2", "BobCo", types.PriorityMaximizeProfit),
		},
		TargetSeller: target,
		Exchanges:    map[string]int{"seller_1": 0, "seller_2": 0},
	}
}

// Every handle the buyer prompt advertises must resolve back through mention
// parsing, including multi-word display names.
func TestBuyerPromptAdvertisesResolvableHandles(t *testing.T) {
	v := view("seller_1")
	v.ActiveSellers = []types.SellerProfile{
		testutil.Profile("seller_1", "Fresh Farms", types.PriorityCustomerRetention),
		testutil.Profile("seller_2", "Bob Co.", types.PriorityMaximizeProfit),
	}

	msgs := agents.NewDefaultPromptBuilder(0).BuyerPrompt(v)
	if len(msgs) == 0 {
		t.Fatal("empty prompt")
	}

	system := msgs[0].Content

	for _, handle := range []string{"@freshfarms", "@bobco"} {
		if !strings.Contains(system, handle) {
			t.Errorf("system prompt missing %s: %q", handle, system)
		}

		got := mention.ParseMentions(handle, v.ActiveSellers)
		if len(got) != 1 {
			t.Errorf("advertised handle %s does not resolve: %v", handle, got)
		}
	}

	if strings.Contains(system, "@Fresh Farms") || strings.Contains(system, "@Bob Co.") {
		t.Errorf("raw display names leaked as handles: %q", system)
	}
}

func TestBuyerTurn(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("a buyer", testutil.Text("Hey @FreshFarms, can you do 9.00 per unit?"))

	buyer := agents.NewBuyer(agents.BuyerConfig{
		Name:     "alex",
		Provider: script,
		Prompts:  agents.NewDefaultPromptBuilder(0),
		Params:   provider.Params{MaxTokens: 64},
		Logger:   zap.NewNop(),
	})

	turn, err := buyer.Turn(context.Background(), view("seller_1"))
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}

	if !strings.Contains(turn.Content, "@FreshFarms") {
		t.Errorf("content = %q", turn.Content)
	}

	if len(turn.MentionedSellers) != 1 || turn.MentionedSellers[0] != "seller_1" {
		t.Errorf("mentions = %v, want [seller_1]", turn.MentionedSellers)
	}
}

func TestBuyerTurnFallbackOnEmptyOutput(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("", testutil.Text("<think>nothing but reasoning in here</think>"))

	buyer := agents.NewBuyer(agents.BuyerConfig{
		Name:     "alex",
		Provider: script,
		Prompts:  agents.NewDefaultPromptBuilder(0),
		Logger:   zap.NewNop(),
	})

	turn, err := buyer.Turn(context.Background(), view("seller_1"))
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}

	if turn.Content != agents.BuyerFallbackMessage {
		t.Errorf("content = %q, want fallback", turn.Content)
	}
}

func TestBuyerTurnProviderError(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("", testutil.Fail(&provider.Error{Kind: provider.KindUnavailable, Message: "down"}))

	buyer := agents.NewBuyer(agents.BuyerConfig{
		Name:     "alex",
		Provider: script,
		Prompts:  agents.NewDefaultPromptBuilder(0),
		Logger:   zap.NewNop(),
	})

	_, err := buyer.Turn(context.Background(), view("seller_1"))
	if err == nil {
		t.Fatal("expected error")
	}

	var agentErr *types.AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("error type %T, want *types.AgentError", err)
	}

	if agentErr.Role != types.RoleBuyer {
		t.Errorf("role = %s, want buyer", agentErr.Role)
	}
}

func newSeller(script *testutil.ScriptedProvider, item types.InventoryItem) *agents.Seller {
	return agents.NewSeller(agents.SellerConfig{
		Profile:  testutil.Profile("seller_1", "FreshFarms", types.PriorityCustomerRetention),
		Item:     item,
		Provider: script,
		Prompts:  agents.NewDefaultPromptBuilder(0),
		Logger:   zap.NewNop(),
	})
}

func TestSellerRespondExtractsOffer(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("a seller", testutil.Text(`Happy to deal! {"offer": {"price": 9.50, "quantity": 100}}`))

	seller := newSeller(script, testutil.ApplesItem(8.5, 12.0, 500))

	resp, err := seller.Respond(context.Background(), view("seller_1"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if resp.Offer == nil {
		t.Fatal("expected an offer")
	}

	if resp.Offer.Price != 9.50 || resp.Offer.Quantity != 100 {
		t.Errorf("offer = %+v", resp.Offer)
	}

	if resp.Offer.Clamped {
		t.Error("in-bounds offer should not be clamped")
	}

	// The inline JSON must not leak into the conversation text.
	if strings.Contains(resp.Content, "offer") || strings.Contains(resp.Content, "{") {
		t.Errorf("content leaked offer JSON: %q", resp.Content)
	}
}

func TestSellerRespondClampsOffer(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("", testutil.Text(`Rock bottom: {"offer": {"price": 5.00, "quantity": 100}}`))

	seller := newSeller(script, testutil.ApplesItem(8.5, 12.0, 500))

	resp, err := seller.Respond(context.Background(), view("seller_1"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if resp.Offer == nil || !resp.Offer.Clamped {
		t.Fatalf("offer = %+v, want clamped", resp.Offer)
	}

	if resp.Offer.Price != 8.5 {
		t.Errorf("price = %v, want the floor 8.5", resp.Offer.Price)
	}
}

func TestSellerRespondWithoutOffer(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("", testutil.Text("Let me check my stock and get back to you."))

	seller := newSeller(script, testutil.ApplesItem(8.5, 12.0, 500))

	resp, err := seller.Respond(context.Background(), view("seller_1"))
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if resp.Offer != nil {
		t.Errorf("offer = %+v, want none", resp.Offer)
	}
}

func TestSellerRespondProviderError(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("", testutil.Fail(&provider.Error{Kind: provider.KindTimeout, Message: "slow"}))

	seller := newSeller(script, testutil.ApplesItem(8.5, 12.0, 500))

	_, err := seller.Respond(context.Background(), view("seller_1"))
	if err == nil {
		t.Fatal("expected error")
	}

	var agentErr *types.AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("error type %T, want *types.AgentError", err)
	}

	if agentErr.Role != types.RoleSeller || agentErr.SellerID != "seller_1" {
		t.Errorf("agent error = %+v", agentErr)
	}
}
