package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/internal/negotiation"
	"github.com/haggleworks/negotiator/internal/testutil"
	"github.com/haggleworks/negotiator/pkg/config"
	"github.com/haggleworks/negotiator/pkg/httpserver"
	"github.com/haggleworks/negotiator/pkg/types"
)

func testService(script *testutil.ScriptedProvider) *runService {
	cfg := &config.Config{
		MaxRounds:           10,
		ParallelSellerLimit: 1,
		DecisionPolicy:      "score",
		MaxTokens:           256,
	}

	registry := negotiation.NewRegistry(&negotiation.RegistryConfig{Logger: zap.NewNop()})

	return newRunService(context.Background(), cfg, script, registry, zap.NewNop())
}

func applesRequest() *httpserver.StartRunRequest {
	return &httpserver.StartRunRequest{
		BuyerName: "alex",
		Constraints: httpserver.ConstraintsPayload{
			ItemName:        "apples",
			QuantityNeeded:  100,
			MinPricePerUnit: 8.0,
			MaxPricePerUnit: 11.0,
		},
		Sellers: []httpserver.SellerPayload{
			{
				SellerID:    "seller_1",
				DisplayName: "FreshFarms",
				Priority:    string(types.PriorityCustomerRetention),
				Inventory: []httpserver.InventoryPayload{{
					ItemName:          "apples",
					CostPrice:         6.5,
					SellingPrice:      12.0,
					LeastPrice:        8.5,
					QuantityAvailable: 500,
				}},
			},
			{
				SellerID:    "seller_2",
				DisplayName: "BobCo",
				Inventory: []httpserver.InventoryPayload{{
					ItemName:          "oranges",
					CostPrice:         3.0,
					SellingPrice:      6.0,
					LeastPrice:        4.0,
					QuantityAvailable: 200,
				}},
			},
		},
	}
}

func TestStartRunEndToEnd(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("You are FreshFarms", testutil.Text(`Deal. {"offer": {"price": 9.50, "quantity": 100}}`)).
		On("a buyer", testutil.Text("Best price for 100 apples?"))

	svc := testService(script)

	runID, err := svc.StartRun(context.Background(), applesRequest())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	replay, live, unsubscribe, ok := svc.Subscribe(runID)
	if !ok {
		t.Fatal("Subscribe: run not found")
	}
	defer unsubscribe()

	var complete *types.CompleteEvent

	timeout := time.After(10 * time.Second)

	events := append([]types.Event{}, replay...)

drainLoop:
	for {
		select {
		case event, open := <-live:
			if !open {
				break drainLoop
			}
			events = append(events, event)

		case <-timeout:
			t.Fatal("run did not finish")
		}
	}

	for _, e := range events {
		if c, isComplete := e.(*types.CompleteEvent); isComplete {
			complete = c
		}
	}

	if complete == nil {
		t.Fatal("no terminal complete event")
	}

	// seller_2 carries no apples and must have been skipped at admission.
	if complete.WinnerID != "seller_1" {
		t.Errorf("winner = %s, want seller_1", complete.WinnerID)
	}

	info, ok := svc.RunInfo(runID)
	if !ok {
		t.Fatal("RunInfo: run not found")
	}

	if info.Status != string(types.RunCompleted) {
		t.Errorf("status = %s, want completed", info.Status)
	}

	if len(svc.ListRuns()) != 1 {
		t.Errorf("ListRuns = %d, want 1", len(svc.ListRuns()))
	}
}

func TestStartRunRejectsInvalidConstraints(t *testing.T) {
	svc := testService(testutil.NewScriptedProvider())

	req := applesRequest()
	req.Constraints.QuantityNeeded = 0

	_, err := svc.StartRun(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}

	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type %T, want *types.ConfigError", err)
	}
}

func TestStartRunNoAdmissibleSellers(t *testing.T) {
	svc := testService(testutil.NewScriptedProvider())

	req := applesRequest()
	// Price every seller out of the buyer's range.
	req.Constraints.MaxPricePerUnit = 2.0
	req.Constraints.MinPricePerUnit = 1.0

	_, err := svc.StartRun(context.Background(), req)
	if !errors.Is(err, types.ErrNoSellersAvailable) {
		t.Fatalf("error = %v, want ErrNoSellersAvailable", err)
	}
}

func TestCancelRun(t *testing.T) {
	script := testutil.NewScriptedProvider().
		On("a buyer", testutil.Block(50*time.Millisecond, "Thinking it over.")).
		On("", testutil.Text("Still here."))

	svc := testService(script)

	runID, err := svc.StartRun(context.Background(), applesRequest())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if !svc.CancelRun(runID) {
		t.Fatal("CancelRun: run not found")
	}

	if svc.CancelRun("missing") {
		t.Error("CancelRun(missing) should report not found")
	}

	handle, _ := svc.registry.Get(runID)

	select {
	case <-handle.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled run did not finish")
	}

	if handle.Status() != types.RunFailed {
		t.Errorf("status = %s, want failed", handle.Status())
	}
}
