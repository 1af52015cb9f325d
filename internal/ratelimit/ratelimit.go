package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/model"
)

// KeyedLimiter hands out one token bucket per key (an API host, an LLM
// provider). Callers sharing a key share its budget.
type KeyedLimiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

// NewKeyedLimiter allows perSecond requests per key with the given burst.
// A non-positive perSecond disables limiting.
func NewKeyedLimiter(perSecond float64, burst int) *KeyedLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		m:     make(map[string]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
}

func (l *KeyedLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.m[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.m[key] = lim
	return lim
}

// Wait blocks until a token for key is available or ctx is done.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if err := l.limiterFor(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", key, err)
	}
	return nil
}

// RateLimitedFetcher is a decorator that waits on a shared limiter before
// delegating to the wrapped SourceFetcher.
type RateLimitedFetcher struct {
	inner   model.SourceFetcher
	limiter *KeyedLimiter
	key     string
}

// NewRateLimitedFetcher wraps inner. All fetchers hitting the same API host
// should share limiter and key.
func NewRateLimitedFetcher(inner model.SourceFetcher, limiter *KeyedLimiter, key string) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
		key:     key,
	}
}

// FetchPostings waits for the limiter, then delegates.
func (f *RateLimitedFetcher) FetchPostings(ctx context.Context, source string) ([]model.Posting, error) {
	if err := f.limiter.Wait(ctx, f.key); err != nil {
		return nil, err
	}
	return f.inner.FetchPostings(ctx, source)
}

// RateLimitedProvider applies the same decorator to LLM calls.
type RateLimitedProvider struct {
	inner   ai.LLMProvider
	limiter *KeyedLimiter
	key     string
}

// NewRateLimitedProvider wraps an LLM provider.
func NewRateLimitedProvider(inner ai.LLMProvider, limiter *KeyedLimiter, key string) *RateLimitedProvider {
	return &RateLimitedProvider{
		inner:   inner,
		limiter: limiter,
		key:     key,
	}
}

// Complete waits for the limiter, then delegates.
func (p *RateLimitedProvider) Complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	if err := p.limiter.Wait(ctx, p.key); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, prompt)
}
