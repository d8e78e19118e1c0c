// Package prefs resolves a user's preferred categorization provider,
// caching lookups against the slow upstream preference store.
package prefs

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/kalambet/scribe/internal/cache"
	"github.com/kalambet/scribe/internal/classify"
)

// ProviderLookup fetches a user's preferred provider from the upstream
// store. Calls may be slow and may fail.
type ProviderLookup interface {
	LookupProvider(ctx context.Context, userID string) (classify.Provider, error)
}

// Resolver maps user ids to providers through a TTL cache.
type Resolver struct {
	lookup    ProviderLookup
	providers *cache.TTL[string, classify.Provider]
	ttl       time.Duration
}

// NewResolver creates a Resolver with a 24-hour cache TTL.
func NewResolver(lookup ProviderLookup) *Resolver {
	return NewResolverWithCache(lookup, cache.New[string, classify.Provider](), 24*time.Hour)
}

// NewResolverWithCache creates a Resolver with a custom cache and TTL
// (for testing and for config-driven wiring).
func NewResolverWithCache(lookup ProviderLookup, providers *cache.TTL[string, classify.Provider], ttl time.Duration) *Resolver {
	return &Resolver{
		lookup:    lookup,
		providers: providers,
		ttl:       ttl,
	}
}

// Resolve returns the provider for userID, consulting the upstream store
// only when the cache has no unexpired entry. Lookup failures propagate
// to the caller, which decides its own fallback.
func (r *Resolver) Resolve(ctx context.Context, userID string) (classify.Provider, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}

	if provider, ok := r.providers.Get(userID); ok {
		return provider, nil
	}

	provider, err := r.lookup.LookupProvider(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("looking up provider for %s: %w", userID, err)
	}

	r.providers.Put(userID, provider, r.ttl)
	return provider, nil
}

// CacheLen reports the number of unexpired cached preferences.
func (r *Resolver) CacheLen() int {
	return r.providers.Len()
}

// SimulatedLookup stands in for the real user-preference store: a
// bounded random delay followed by a uniformly random provider.
type SimulatedLookup struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewSimulatedLookup creates the simulated store. Zero delays disable
// sleeping (tests).
func NewSimulatedLookup(minDelay, maxDelay time.Duration) *SimulatedLookup {
	return &SimulatedLookup{minDelay: minDelay, maxDelay: maxDelay}
}

func (l *SimulatedLookup) LookupProvider(ctx context.Context, userID string) (classify.Provider, error) {
	d := l.minDelay
	if l.maxDelay > l.minDelay {
		d += rand.N(l.maxDelay - l.minDelay)
	}
	if d > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
	}

	if rand.IntN(2) == 0 {
		return classify.ProviderOpenAI, nil
	}
	return classify.ProviderAnthropic, nil
}
