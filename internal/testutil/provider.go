// Package testutil provides deterministic fakes for negotiation tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/haggleworks/negotiator/internal/provider"
)

// Reply is one scripted provider response.
type Reply struct {
	Text  string
	Err   error
	Delay time.Duration
}

// Text builds a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail builds a failing reply.
func Fail(err error) Reply { return Reply{Err: err} }

// Block builds a reply delivered after a delay, or a context error if the
// call is cancelled first.
func Block(d time.Duration, s string) Reply { return Reply{Text: s, Delay: d} }

type route struct {
	contains string
	replies  []Reply
	next     int
}

// ScriptedProvider is a deterministic Provider for tests. Calls are routed by
// substring match against the rendered prompt (system prompts name the agent,
// so "You are Fresh Farms" routes one seller's calls); each route plays its
// replies in order and repeats the last one when exhausted.
type ScriptedProvider struct {
	mu     sync.Mutex
	routes []route
	calls  []string
}

// NewScriptedProvider creates an empty scripted provider. With no routes every
// call fails; add a catch-all with On("").
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{}
}

// On registers replies for prompts containing substr. Routes are matched in
// registration order; register specific routes before a catch-all On("").
func (p *ScriptedProvider) On(substr string, replies ...Reply) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.routes = append(p.routes, route{contains: substr, replies: replies})

	return p
}

// Calls returns the rendered prompts seen so far, in order.
func (p *ScriptedProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.calls))
	copy(out, p.calls)

	return out
}

// Ping reports the provider as healthy.
func (p *ScriptedProvider) Ping(ctx context.Context) provider.Status {
	return provider.Status{Available: true, Model: "scripted", Latency: time.Microsecond}
}

// Generate plays the next reply on the first matching route.
func (p *ScriptedProvider) Generate(ctx context.Context, messages []provider.ChatMessage, params provider.Params) (*provider.Result, error) {
	if ctx.Err() != nil {
		return nil, provider.Classify(ctx.Err(), 0, "")
	}

	prompt := renderPrompt(messages)

	p.mu.Lock()
	p.calls = append(p.calls, prompt)

	var reply *Reply
	for i := range p.routes {
		r := &p.routes[i]
		if !strings.Contains(prompt, r.contains) {
			continue
		}

		idx := r.next
		if idx >= len(r.replies) {
			idx = len(r.replies) - 1
		}
		r.next++

		reply = &r.replies[idx]

		break
	}
	p.mu.Unlock()

	if reply == nil {
		return nil, &provider.Error{Kind: provider.KindBadRequest, Message: "no scripted reply for prompt"}
	}

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return nil, provider.Classify(ctx.Err(), 0, "")
		}
	}

	if reply.Err != nil {
		return nil, reply.Err
	}

	return &provider.Result{Text: reply.Text, Model: "scripted"}, nil
}

// Stream replays Generate as a single-token stream.
func (p *ScriptedProvider) Stream(ctx context.Context, messages []provider.ChatMessage, params provider.Params) (<-chan provider.TokenChunk, error) {
	result, err := p.Generate(ctx, messages, params)
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.TokenChunk, 2)
	ch <- provider.TokenChunk{Token: result.Text, Index: 0}
	ch <- provider.TokenChunk{Index: 1, IsEnd: true}
	close(ch)

	return ch, nil
}

func renderPrompt(messages []provider.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	return b.String()
}
