// Package storage tees negotiation results to durable storage. The core
// never persists anything itself; the app wrapper feeds a Sink from the
// event stream.
package storage

import (
	"context"

	"github.com/haggleworks/negotiator/pkg/types"
)

// Sink receives terminal outcomes and transcripts for archiving.
type Sink interface {
	// StoreOutcome records a run's terminal result.
	StoreOutcome(ctx context.Context, runID string, outcome *types.CompleteEvent) error

	// StoreTranscript records a run's full message history.
	StoreTranscript(ctx context.Context, runID string, messages []types.Message) error

	// Close releases the sink's resources.
	Close() error
}
