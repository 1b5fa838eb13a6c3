package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// HTTPConfig configures an OpenAI-compatible chat-completion backend.
type HTTPConfig struct {
	BaseURL           string // e.g. http://localhost:11434 or an API gateway
	APIKey            string // Optional bearer token
	Model             string // Default model when Params.Model is empty
	Timeout           time.Duration
	Retry             RetryConfig
	SuppressReasoning bool
	Enabled           bool
	Logger            *zap.Logger
}

// Validate checks the backend configuration.
func (c *HTTPConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// HTTPProvider talks to an OpenAI-compatible /v1/chat/completions endpoint.
// Safe for concurrent Generate and Stream calls; the underlying http.Client
// holds the connection pool.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPProvider creates a provider for one configured backend.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate provider config: %w", err)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &HTTPProvider{
		cfg: cfg,
		// No client-level timeout: streaming reads outlive any fixed budget.
		// Per-call deadlines come from the context.
		client: &http.Client{},
		logger: cfg.Logger,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			Reasoning string `json:"reasoning"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Ping probes the backend's model listing endpoint.
func (p *HTTPProvider) Ping(ctx context.Context) Status {
	if !p.cfg.Enabled {
		return Status{Available: false, Model: p.cfg.Model, Detail: "provider disabled by config"}
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return Status{Available: false, Model: p.cfg.Model, Detail: err.Error()}
	}

	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return Status{Available: false, Model: p.cfg.Model, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = io.Copy(io.Discard, resp.Body)

	return Status{
		Available: resp.StatusCode == http.StatusOK,
		Model:     p.cfg.Model,
		Latency:   time.Since(start),
		Detail:    resp.Status,
	}
}

// Generate produces a complete response, retrying transient failures.
func (p *HTTPProvider) Generate(ctx context.Context, messages []ChatMessage, params Params) (*Result, error) {
	if !p.cfg.Enabled {
		return nil, &Error{Kind: KindDisabled, Message: "provider disabled by config"}
	}

	err := params.Validate()
	if err != nil {
		return nil, err
	}

	if p.cfg.SuppressReasoning {
		messages = InjectNoReasoning(messages)
	}

	start := time.Now()

	result, err := withRetry(ctx, p.cfg.Retry, p.logger, "generate", func(ctx context.Context) (*Result, error) {
		return p.generateOnce(ctx, messages, params)
	})

	GenerateDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		GenerateErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}

	GenerateTotal.Inc()

	return result, nil
}

func (p *HTTPProvider) generateOnce(ctx context.Context, messages []ChatMessage, params Params) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := p.doRequest(ctx, chatRequest{
		Model:       p.model(params),
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stop:        params.Stop,
	})
	if err != nil {
		return nil, err
	}

	var parsed chatResponse

	err = json.Unmarshal(body, &parsed)
	if err != nil {
		return nil, &Error{Kind: KindResponseError, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}

	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: KindResponseError, Message: "response contained no choices"}
	}

	text := parsed.Choices[0].Message.Content
	if p.cfg.SuppressReasoning {
		text = StripReasoning(text)
	}

	return &Result{
		Text:         text,
		Model:        parsed.Model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

// Stream produces a token channel fed from the backend's SSE response.
// Reasoning deltas and bracketed reasoning blocks never reach the channel.
func (p *HTTPProvider) Stream(ctx context.Context, messages []ChatMessage, params Params) (<-chan TokenChunk, error) {
	if !p.cfg.Enabled {
		return nil, &Error{Kind: KindDisabled, Message: "provider disabled by config"}
	}

	err := params.Validate()
	if err != nil {
		return nil, err
	}

	if p.cfg.SuppressReasoning {
		messages = InjectNoReasoning(messages)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)

	body, err := withRetry(ctx, p.cfg.Retry, p.logger, "stream", func(ctx context.Context) (io.ReadCloser, error) {
		return p.doStreamRequest(ctx, chatRequest{
			Model:       p.model(params),
			Messages:    messages,
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
			Stop:        params.Stop,
			Stream:      true,
		})
	})
	if err != nil {
		cancel()
		GenerateErrorsTotal.WithLabelValues(string(KindOf(err))).Inc()
		return nil, err
	}

	out := make(chan TokenChunk, 32)

	go func() {
		defer cancel()
		defer close(out)
		defer func() { _ = body.Close() }()

		p.consumeStream(ctx, body, out)
	}()

	return out, nil
}

func (p *HTTPProvider) consumeStream(ctx context.Context, body io.ReadCloser, out chan<- TokenChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	suppressor := &streamSuppressor{}
	index := 0

	emit := func(chunk TokenChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk

		err := json.Unmarshal([]byte(data), &chunk)
		if err != nil {
			p.logger.Warn("stream-chunk-decode-failed", zap.Error(err))
			continue
		}

		for _, choice := range chunk.Choices {
			// Provider-side reasoning channels are dropped outright.
			token := choice.Delta.Content
			if token == "" {
				continue
			}

			if p.cfg.SuppressReasoning {
				token = suppressor.Feed(token)
				if token == "" {
					continue
				}
			}

			if !emit(TokenChunk{Token: token, Index: index}) {
				return
			}
			index++
		}
	}

	if p.cfg.SuppressReasoning {
		if tail := suppressor.Flush(); tail != "" {
			if !emit(TokenChunk{Token: tail, Index: index}) {
				return
			}
			index++
		}
	}

	err := scanner.Err()
	if err != nil && ctx.Err() == nil {
		emit(TokenChunk{Index: index, IsEnd: true, Err: Classify(err, 0, "")})
		return
	}

	emit(TokenChunk{Index: index, IsEnd: true})
}

func (p *HTTPProvider) doRequest(ctx context.Context, payload chatRequest) ([]byte, error) {
	resp, err := p.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(err, 0, "")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, Classify(nil, resp.StatusCode, string(body))
	}

	return body, nil
}

func (p *HTTPProvider) doStreamRequest(ctx context.Context, payload chatRequest) (io.ReadCloser, error) {
	resp, err := p.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, Classify(nil, resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

func (p *HTTPProvider) post(ctx context.Context, payload chatRequest) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: fmt.Sprintf("marshal request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindBadRequest, Message: fmt.Sprintf("create request: %v", err), Err: err}
	}

	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Classify(err, 0, "")
	}

	return resp, nil
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
}

func (p *HTTPProvider) model(params Params) string {
	if params.Model != "" {
		return params.Model
	}

	return p.cfg.Model
}
