package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testConfig(baseURL string) HTTPConfig {
	return HTTPConfig{
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
		Retry:   RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond},
		Enabled: true,
		Logger:  zap.NewNop(),
	}
}

func testParams() Params {
	return Params{Temperature: 0, MaxTokens: 64}
}

func completionBody(content string) string {
	return fmt.Sprintf(`{
		"model": "test-model",
		"choices": [{"message": {"content": %q}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`, content)
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("I can do 9.50."))
	}))
	defer server.Close()

	p, err := NewHTTPProvider(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}

	result, err := p.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if result.Text != "I can do 9.50." {
		t.Errorf("text = %q", result.Text)
	}

	if result.InputTokens != 10 || result.OutputTokens != 5 {
		t.Errorf("usage = %d/%d, want 10/5", result.InputTokens, result.OutputTokens)
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "backend overloaded", http.StatusServiceUnavailable)
			return
		}

		fmt.Fprint(w, completionBody("recovered"))
	}))
	defer server.Close()

	p, _ := NewHTTPProvider(testConfig(server.URL))

	result, err := p.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err != nil {
		t.Fatalf("Generate after retries: %v", err)
	}

	if result.Text != "recovered" {
		t.Errorf("text = %q", result.Text)
	}

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGenerateDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown model", http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := NewHTTPProvider(testConfig(server.URL))

	_, err := p.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err == nil {
		t.Fatal("expected error")
	}

	if KindOf(err) != KindBadRequest {
		t.Errorf("kind = %s, want %s", KindOf(err), KindBadRequest)
	}

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not be retried)", calls.Load())
	}
}

func TestGenerateStripsReasoning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("<think>the floor is 8.5</think>Best I can do is 9.00."))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.SuppressReasoning = true

	p, _ := NewHTTPProvider(cfg)

	result, err := p.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if result.Text != "Best I can do is 9.00." {
		t.Errorf("text = %q, reasoning should be stripped", result.Text)
	}
}

func TestGenerateDisabled(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.Enabled = false

	p, _ := NewHTTPProvider(cfg)

	_, err := p.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if KindOf(err) != KindDisabled {
		t.Errorf("kind = %s, want %s", KindOf(err), KindDisabled)
	}
}

func TestGenerateRejectsInvalidParams(t *testing.T) {
	p, _ := NewHTTPProvider(testConfig("http://localhost:1"))

	_, err := p.Generate(context.Background(), nil, Params{Temperature: 3, MaxTokens: 64})
	if KindOf(err) != KindBadRequest {
		t.Errorf("kind = %s, want %s", KindOf(err), KindBadRequest)
	}
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"lo"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p, _ := NewHTTPProvider(testConfig(server.URL))

	ch, err := p.Stream(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var (
		text   string
		sawEnd bool
	)

	for chunk := range ch {
		if chunk.IsEnd {
			sawEnd = true
			if chunk.Err != nil {
				t.Errorf("terminal chunk error: %v", chunk.Err)
			}
			continue
		}

		text += chunk.Token
	}

	if text != "Hello" {
		t.Errorf("streamed text = %q, want Hello", text)
	}

	if !sawEnd {
		t.Error("stream must end with a terminal chunk")
	}
}

func TestStreamSuppressesReasoningTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"<think>hid"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"den</think>deal"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"reasoning":"side channel"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.SuppressReasoning = true

	p, _ := NewHTTPProvider(cfg)

	ch, err := p.Stream(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var text string
	for chunk := range ch {
		text += chunk.Token
	}

	if text != "deal" {
		t.Errorf("streamed text = %q, want %q", text, "deal")
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	p, _ := NewHTTPProvider(testConfig(server.URL))

	status := p.Ping(context.Background())
	if !status.Available {
		t.Errorf("status = %+v, want available", status)
	}

	if status.Model != "test-model" {
		t.Errorf("model = %q", status.Model)
	}
}

func TestPingUnreachable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Timeout = 500 * time.Millisecond

	p, _ := NewHTTPProvider(cfg)

	status := p.Ping(context.Background())
	if status.Available {
		t.Error("unreachable backend reported available")
	}
}

func TestSharedReturnsSameInstance(t *testing.T) {
	cfg := testConfig("http://localhost:9999")

	a, err := Shared(cfg)
	if err != nil {
		t.Fatalf("Shared: %v", err)
	}

	b, err := Shared(cfg)
	if err != nil {
		t.Fatalf("Shared: %v", err)
	}

	if a != b {
		t.Error("Shared must return one instance per config")
	}
}

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, completionBody("ok"))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = "sk-test"

	p, _ := NewHTTPProvider(cfg)

	_, err := p.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, testParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
