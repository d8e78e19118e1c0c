// Package classify turns transcription text into categories, sentiment,
// and a confidence score, using one of two interchangeable provider
// backends selected per user.
package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/scribe/internal/cache"
)

// Provider identifies a categorization backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Valid reports whether p names a known provider.
func (p Provider) Valid() bool {
	return p == ProviderOpenAI || p == ProviderAnthropic
}

// Result is the normalized categorization output. Categories keep their
// insertion order for display. Error marks a degraded result produced by
// a fallback path; it can coexist with a valid fallback category set.
type Result struct {
	Categories []string `json:"categories"`
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Model      string   `json:"model,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Fallback is the fixed result used for empty input and provider failures.
func Fallback() Result {
	return Result{
		Categories: []string{"General"},
		Sentiment:  "neutral",
		Confidence: 0.5,
	}
}

// PreferenceResolver maps a user to their categorization provider.
// Implemented by prefs.Resolver.
type PreferenceResolver interface {
	Resolve(ctx context.Context, userID string) (Provider, error)
}

// Classifier runs one provider's classification over text and returns the
// provider's raw wire payload. Each provider has its own payload shape.
type Classifier interface {
	Classify(ctx context.Context, text string) (json.RawMessage, error)
}

// Service classifies transcription text with a per-text result cache.
type Service struct {
	resolver        PreferenceResolver
	classifiers     map[Provider]Classifier
	defaultProvider Provider
	results         *cache.TTL[string, Result]
	ttl             time.Duration
	logger          *slog.Logger
}

// NewService creates a Service with a 24-hour result cache.
func NewService(resolver PreferenceResolver, classifiers map[Provider]Classifier) *Service {
	return NewServiceWithCache(resolver, classifiers, cache.New[string, Result](), 24*time.Hour)
}

// NewServiceWithCache creates a Service with a custom cache and TTL (for
// testing and for config-driven wiring).
func NewServiceWithCache(resolver PreferenceResolver, classifiers map[Provider]Classifier, results *cache.TTL[string, Result], ttl time.Duration) *Service {
	return &Service{
		resolver:        resolver,
		classifiers:     classifiers,
		defaultProvider: ProviderOpenAI,
		results:         results,
		ttl:             ttl,
		logger:          slog.Default(),
	}
}

// Categorize classifies text for the given user. It never returns an
// error: provider and resolver failures degrade to the fixed fallback
// result, tagged with an error description.
func (s *Service) Categorize(ctx context.Context, text, userID string) Result {
	if strings.TrimSpace(text) == "" {
		return Fallback()
	}

	key := cacheKey(text)
	if cached, ok := s.results.Get(key); ok {
		return cached
	}

	provider := s.resolveProvider(ctx, userID)

	result := s.classifyWith(ctx, provider, text)
	s.results.Put(key, result, s.ttl)
	return result
}

// UseDefaultProvider overrides the provider used when no user preference
// is available. Unknown providers are ignored. Not safe to call after the
// service starts taking requests.
func (s *Service) UseDefaultProvider(p Provider) {
	if p.Valid() {
		s.defaultProvider = p
	}
}

// CacheLen reports the number of unexpired cached results.
func (s *Service) CacheLen() int {
	return s.results.Len()
}

// resolveProvider picks the provider for userID, falling back to the
// default when no user is known or resolution fails.
func (s *Service) resolveProvider(ctx context.Context, userID string) Provider {
	if userID == "" {
		return s.defaultProvider
	}
	provider, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		s.logger.Warn("provider resolution failed, using default", "user_id", userID, "provider", s.defaultProvider, "error", err)
		return s.defaultProvider
	}
	return provider
}

func (s *Service) classifyWith(ctx context.Context, provider Provider, text string) Result {
	classifier, ok := s.classifiers[provider]
	if !ok {
		s.logger.Warn("no classifier for provider, using fallback", "provider", provider)
		result := Fallback()
		result.Error = "no classifier for provider " + string(provider)
		return result
	}

	raw, err := classifier.Classify(ctx, text)
	if err != nil {
		s.logger.Warn("classifier call failed, using fallback", "provider", provider, "error", err)
		result := Fallback()
		result.Error = "classification failed: " + err.Error()
		return result
	}

	result, err := normalize(provider, raw)
	if err != nil {
		s.logger.Warn("malformed classifier payload, using fallback", "provider", provider, "error", err)
		result = Fallback()
		result.Error = "malformed classifier response: " + err.Error()
	}
	return result
}

// maxKeyRunes bounds the cache key to the first 100 characters of the
// normalized text. The key does not include the resolved provider, so
// texts sharing a prefix share one cached result across providers.
const maxKeyRunes = 100

func cacheKey(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	runes := []rune(s)
	if len(runes) > maxKeyRunes {
		runes = runes[:maxKeyRunes]
	}
	return string(runes)
}
