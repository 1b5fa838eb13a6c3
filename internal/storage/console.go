package storage

import (
	"context"
	"fmt"

	"github.com/haggleworks/negotiator/pkg/types"
	"go.uber.org/zap"
)

// ConsoleSink implements Sink by pretty-printing outcomes to the console.
type ConsoleSink struct {
	logger *zap.Logger
}

// NewConsoleSink creates a console sink.
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	logger.Info("console-sink-initialized")
	return &ConsoleSink{logger: logger}
}

// StoreOutcome pretty-prints a terminal outcome.
func (c *ConsoleSink) StoreOutcome(ctx context.Context, runID string, outcome *types.CompleteEvent) error {
	rule := "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

	fmt.Println("\n" + rule)
	fmt.Printf("NEGOTIATION COMPLETE\n")
	fmt.Println(rule)
	fmt.Printf("Run:     %s\n", runID)
	fmt.Printf("Rounds:  %d\n", outcome.TotalRounds)

	if outcome.WinnerID == "" {
		fmt.Printf("Result:  no deal\n")
	} else {
		fmt.Printf("Winner:  %s\n", outcome.WinnerID)
		fmt.Printf("Price:   %.2f x %d units\n", outcome.WinningOffer.Price, outcome.WinningOffer.Quantity)
	}

	fmt.Printf("Reason:  %s\n", outcome.Reason)
	fmt.Println(rule)

	return nil
}

// StoreTranscript logs the transcript length; the console keeps no history.
func (c *ConsoleSink) StoreTranscript(ctx context.Context, runID string, messages []types.Message) error {
	c.logger.Debug("transcript-discarded",
		zap.String("run-id", runID),
		zap.Int("messages", len(messages)))

	return nil
}

// Close is a no-op for the console sink.
func (c *ConsoleSink) Close() error {
	c.logger.Info("closing-console-sink")
	return nil
}
