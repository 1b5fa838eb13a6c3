package provider

import (
	"context"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in the prompt sequence sent to a model.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params controls a single generate or stream call.
type Params struct {
	Temperature float64  // [0, 2]
	MaxTokens   int      // Must be positive
	Stop        []string // Optional stop sequences
	Model       string   // Optional model override
}

// Validate checks generation parameters.
func (p *Params) Validate() error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return &Error{Kind: KindBadRequest, Message: "temperature must be in [0, 2]"}
	}

	if p.MaxTokens <= 0 {
		return &Error{Kind: KindBadRequest, Message: "max tokens must be positive"}
	}

	return nil
}

// Result is the outcome of a successful Generate call.
type Result struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// TokenChunk is one element of a streaming response.
// The final chunk has IsEnd=true and an empty Token. Err is set only when the
// stream terminated abnormally; it is always accompanied by IsEnd=true.
type TokenChunk struct {
	Token string `json:"token"`
	Index int    `json:"index"`
	IsEnd bool   `json:"is_end"`
	Err   error  `json:"-"`
}

// Status reports provider reachability.
type Status struct {
	Available bool
	Model     string
	Latency   time.Duration
	Detail    string
}

// Provider is the capability set the negotiation core depends on.
// Implementations must be safe for concurrent Generate and Stream calls; one
// logical instance is shared per configured backend.
type Provider interface {
	// Ping probes the backend and reports availability.
	Ping(ctx context.Context) Status

	// Generate produces a complete response for the given messages.
	Generate(ctx context.Context, messages []ChatMessage, params Params) (*Result, error)

	// Stream produces a lazy finite token sequence. The returned channel is
	// closed after the terminal chunk (IsEnd=true) is delivered.
	Stream(ctx context.Context, messages []ChatMessage, params Params) (<-chan TokenChunk, error)
}
