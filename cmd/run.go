package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haggleworks/negotiator/internal/app"
	"github.com/haggleworks/negotiator/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the negotiation service",
	Long: `Starts the negotiation service, which will:
1. Connect to the configured OpenAI-compatible LLM backend
2. Accept run requests on POST /api/runs
3. Stream run events over SSE (/api/runs/{id}/events) and WebSocket (/ws/runs/{id})
4. Archive outcomes and transcripts to the configured storage sink`,
	RunE: runService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runService(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
