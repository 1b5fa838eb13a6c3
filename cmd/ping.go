package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haggleworks/negotiator/internal/provider"
	"github.com/haggleworks/negotiator/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check LLM backend reachability",
	Long:  `Probes the configured OpenAI-compatible backend and reports availability, model and latency.`,
	RunE:  runPing,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().Duration("timeout", 10*time.Second, "Probe deadline")
}

func runPing(cmd *cobra.Command, args []string) error {
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

	llm, err := provider.Shared(provider.HTTPConfig{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Model:   cfg.ProviderModel,
		Timeout: cfg.ProviderTimeout,
		Retry: provider.RetryConfig{
			MaxRetries: cfg.ProviderMaxRetries,
			BaseDelay:  cfg.ProviderBaseDelay,
		},
		SuppressReasoning: cfg.ReasoningSuppressed,
		Enabled:           cfg.ProviderEnabled,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status := llm.Ping(ctx)
	if !status.Available {
		return fmt.Errorf("backend unavailable at %s: %s", cfg.ProviderBaseURL, status.Detail)
	}

	fmt.Printf("backend %s is up (model %s, latency %s)\n",
		cfg.ProviderBaseURL, status.Model, status.Latency.Round(time.Millisecond))

	return nil
}
