// Package ratelimit keeps one token bucket per data source.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit describes a bucket: Every is the refill interval for one token.
type Limit struct {
	Every time.Duration `yaml:"every"`
	Burst int           `yaml:"burst"`
}

// New builds a limiter refilling one token per l.Every. A zero interval means
// unlimited.
func New(l Limit) *rate.Limiter {
	if l.Every <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(l.Every), max(l.Burst, 1))
}

// Registry manages rate limiters for different sources.
type Registry struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*rate.Limiter)}
}

// Add registers (or replaces) the limiter for source.
func (r *Registry) Add(source string, l Limit) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim := New(l)
	r.limiters[source] = lim
	return lim
}

// Get returns the limiter for source, or nil.
func (r *Registry) Get(source string) *rate.Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[source]
}

// Wait blocks on the source's limiter. Unknown sources pass immediately.
func (r *Registry) Wait(ctx context.Context, source string) error {
	lim := r.Get(source)
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}
