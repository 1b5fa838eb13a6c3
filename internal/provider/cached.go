package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	json "github.com/goccy/go-json"
	"github.com/haggleworks/negotiator/pkg/cache"
	"go.uber.org/zap"
)

// CachedProvider wraps a provider with a result cache for deterministic calls.
// Only temperature-0 Generate calls are cached: at higher temperatures the
// backend is free to produce a different completion each time. Stream is
// always passed through.
type CachedProvider struct {
	inner  Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps inner with a generate cache.
func NewCachedProvider(inner Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Ping delegates to the wrapped provider.
func (p *CachedProvider) Ping(ctx context.Context) Status {
	return p.inner.Ping(ctx)
}

// Generate serves deterministic calls from the cache when possible.
func (p *CachedProvider) Generate(ctx context.Context, messages []ChatMessage, params Params) (*Result, error) {
	if params.Temperature != 0 {
		return p.inner.Generate(ctx, messages, params)
	}

	key, ok := cacheKey(messages, params)
	if ok {
		if cached, found := p.cache.Get(key); found {
			if result, okType := cached.(*Result); okType {
				CacheHitsTotal.Inc()
				p.logger.Debug("generate-cache-hit", zap.String("key", key[:12]))
				return result, nil
			}
		}
	}

	result, err := p.inner.Generate(ctx, messages, params)
	if err != nil {
		return nil, err
	}

	if ok {
		p.cache.Set(key, result, p.ttl)
	}

	return result, nil
}

// Stream delegates to the wrapped provider.
func (p *CachedProvider) Stream(ctx context.Context, messages []ChatMessage, params Params) (<-chan TokenChunk, error) {
	return p.inner.Stream(ctx, messages, params)
}

func cacheKey(messages []ChatMessage, params Params) (string, bool) {
	payload, err := json.Marshal(struct {
		Messages []ChatMessage `json:"messages"`
		Params   Params        `json:"params"`
	}{messages, params})
	if err != nil {
		return "", false
	}

	sum := sha256.Sum256(payload)

	return hex.EncodeToString(sum[:]), true
}
