package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/haggleworks/negotiator/internal/app"
	"github.com/haggleworks/negotiator/pkg/config"
	"github.com/haggleworks/negotiator/pkg/httpserver"
	"github.com/haggleworks/negotiator/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Run one negotiation from a scenario file and print its events",
	Long: `Runs a single negotiation from a JSON scenario file and streams its
events to stdout. The scenario file uses the same shape as the POST /api/runs
request body:

  {
    "buyer_name": "alex",
    "constraints": {
      "item_name": "apples",
      "quantity_needed": 100,
      "min_price_per_unit": 8.0,
      "max_price_per_unit": 11.0
    },
    "sellers": [
      {
        "seller_id": "seller_1",
        "display_name": "Fresh Farms",
        "priority": "customer_retention",
        "style": "very_sweet",
        "inventory": [
          {"item_name": "apples", "cost_price": 6.0, "selling_price": 12.0,
           "least_price": 8.5, "quantity_available": 500}
        ]
      }
    ]
  }`,
	RunE: runNegotiate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(negotiateCmd)
	negotiateCmd.Flags().StringP("file", "f", "", "Scenario file (JSON)")
	negotiateCmd.Flags().Int64("seed", 0, "Deterministic seed (overrides scenario and env)")
	negotiateCmd.Flags().Int("max-rounds", 0, "Round budget (overrides scenario and env)")
	negotiateCmd.Flags().Duration("timeout", 10*time.Minute, "Overall run deadline")
	_ = negotiateCmd.MarkFlagRequired("file")
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	scenarioPath, _ := cmd.Flags().GetString("file")

	req, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		req.Seed = &seed
	}

	if maxRounds, _ := cmd.Flags().GetInt("max-rounds"); maxRounds > 0 {
		req.MaxRounds = maxRounds
	}

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc := application.RunService()

	runID, err := svc.StartRun(ctx, req)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	fmt.Printf("run %s started\n\n", runID)

	replay, live, unsubscribe, ok := svc.Subscribe(runID)
	if !ok {
		return fmt.Errorf("run %s vanished before streaming", runID)
	}
	defer unsubscribe()

	for _, event := range replay {
		printEvent(event)
	}

	for {
		select {
		case event, open := <-live:
			if !open {
				return application.Shutdown()
			}
			printEvent(event)

		case <-ctx.Done():
			svc.CancelRun(runID)
			// Keep draining; the cancellation event and close follow.
			for event := range live {
				printEvent(event)
			}
			return application.Shutdown()
		}
	}
}

func loadScenario(path string) (*httpserver.StartRunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var req httpserver.StartRunRequest
	err = json.Unmarshal(data, &req)
	if err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	return &req, nil
}

func printEvent(event types.Event) {
	switch e := event.(type) {
	case *types.BuyerMessageEvent:
		fmt.Printf("[round %d] buyer -> %s: %s\n", e.Round, e.SellerID, e.Content)

	case *types.SellerResponseEvent:
		fmt.Printf("[round %d] %s: %s\n", e.Round, e.SellerID, e.Content)
		if e.Offer != nil {
			fmt.Printf("           offer %s: %.2f x %d\n", e.Offer.OfferID, e.Offer.Price, e.Offer.Quantity)
		}

	case *types.ErrorEvent:
		kind := "recoverable"
		if !e.Recoverable {
			kind = "fatal"
		}
		fmt.Printf("[round %d] %s error (%s): %s\n", e.Round, e.Agent, kind, e.Error)

	case *types.CompleteEvent:
		if e.WinnerID != "" {
			fmt.Printf("\ndeal: %s at %.2f x %d after %d round(s)\n",
				e.WinnerID, e.WinningOffer.Price, e.WinningOffer.Quantity, e.TotalRounds)
		} else {
			fmt.Printf("\nno deal after %d round(s): %s\n", e.TotalRounds, e.Reason)
		}

	case *types.HeartbeatEvent:
		// Progress ticks are noise on a terminal.
	}
}
