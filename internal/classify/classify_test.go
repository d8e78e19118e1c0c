package classify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/scribe/internal/cache"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockResolver struct {
	provider Provider
	err      error
	calls    int
}

func (m *mockResolver) Resolve(ctx context.Context, userID string) (Provider, error) {
	m.calls++
	return m.provider, m.err
}

// countingClassifier returns a fixed valid openai payload and counts calls.
type countingClassifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingClassifier) Classify(ctx context.Context, text string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return json.Marshal(openaiPayload{
		Object:    "classification",
		Model:     "gpt-4o-mini",
		Labels:    []string{"Automotive"},
		Sentiment: "positive",
		Score:     0.8,
	})
}

func (c *countingClassifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestService(resolver PreferenceResolver, openai, anthropic Classifier, clock cache.Clock, ttl time.Duration) *Service {
	classifiers := map[Provider]Classifier{}
	if openai != nil {
		classifiers[ProviderOpenAI] = openai
	}
	if anthropic != nil {
		classifiers[ProviderAnthropic] = anthropic
	}
	return NewServiceWithCache(resolver, classifiers, cache.NewWithClock[string, Result](clock), ttl)
}

func TestCategorizeEmptyText(t *testing.T) {
	c := &countingClassifier{}
	svc := newTestService(&mockResolver{provider: ProviderOpenAI}, c, nil, newMockClock(), time.Hour)

	for _, text := range []string{"", "   ", "\n\t"} {
		got := svc.Categorize(context.Background(), text, "alice")
		if got.Categories[0] != "General" || got.Sentiment != "neutral" || got.Confidence != 0.5 {
			t.Errorf("Categorize(%q): expected fallback, got %+v", text, got)
		}
		if got.Error != "" {
			t.Errorf("Categorize(%q): empty input is not an error condition, got %q", text, got.Error)
		}
	}

	if c.count() != 0 {
		t.Errorf("classifier must not run on empty input, got %d calls", c.count())
	}
	if svc.CacheLen() != 0 {
		t.Errorf("empty input must not be cached, got %d entries", svc.CacheLen())
	}
}

func TestCategorizeCachesResult(t *testing.T) {
	c := &countingClassifier{}
	svc := newTestService(&mockResolver{provider: ProviderOpenAI}, c, nil, newMockClock(), time.Hour)

	first := svc.Categorize(context.Background(), "I love classic cars", "alice")
	second := svc.Categorize(context.Background(), "I love classic cars", "alice")

	if c.count() != 1 {
		t.Fatalf("expected one classifier call, got %d", c.count())
	}
	if first.Categories[0] != second.Categories[0] || first.Confidence != second.Confidence {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
	if svc.CacheLen() != 1 {
		t.Errorf("expected 1 cache entry, got %d", svc.CacheLen())
	}
}

func TestCategorizeCacheKeyNormalization(t *testing.T) {
	c := &countingClassifier{}
	svc := newTestService(&mockResolver{provider: ProviderOpenAI}, c, nil, newMockClock(), time.Hour)

	svc.Categorize(context.Background(), "I Love Classic CARS", "alice")
	svc.Categorize(context.Background(), "  i love classic cars  ", "alice")

	if c.count() != 1 {
		t.Errorf("case and whitespace variants must share one entry, got %d calls", c.count())
	}
}

func TestCategorizeCacheKeyTruncation(t *testing.T) {
	c := &countingClassifier{}
	svc := newTestService(&mockResolver{provider: ProviderOpenAI}, c, nil, newMockClock(), time.Hour)

	prefix := strings.Repeat("a", 100)
	svc.Categorize(context.Background(), prefix+" first tail", "alice")
	svc.Categorize(context.Background(), prefix+" second tail", "alice")

	if c.count() != 1 {
		t.Errorf("texts sharing the first 100 characters must share one entry, got %d calls", c.count())
	}
}

func TestCategorizeCacheExpiry(t *testing.T) {
	clock := newMockClock()
	c := &countingClassifier{}
	svc := newTestService(&mockResolver{provider: ProviderOpenAI}, c, nil, clock, time.Hour)

	svc.Categorize(context.Background(), "cars", "alice")
	clock.Advance(2 * time.Hour)
	svc.Categorize(context.Background(), "cars", "alice")

	if c.count() != 2 {
		t.Errorf("expected a fresh classification after expiry, got %d calls", c.count())
	}
}

func TestCategorizeClassifierFailure(t *testing.T) {
	c := &countingClassifier{err: errors.New("provider down")}
	svc := newTestService(&mockResolver{provider: ProviderOpenAI}, c, nil, newMockClock(), time.Hour)

	got := svc.Categorize(context.Background(), "cars", "alice")

	if got.Categories[0] != "General" || got.Sentiment != "neutral" || got.Confidence != 0.5 {
		t.Errorf("expected fallback result, got %+v", got)
	}
	if got.Error == "" {
		t.Error("degraded result must carry an error description")
	}
	// The degraded result is cached like any other.
	if svc.CacheLen() != 1 {
		t.Errorf("expected the fallback to be cached, got %d entries", svc.CacheLen())
	}
}

func TestCategorizeResolverFailureUsesDefault(t *testing.T) {
	openai := &countingClassifier{}
	anthropic := &countingClassifier{}
	resolver := &mockResolver{err: errors.New("preference store timeout")}
	svc := newTestService(resolver, openai, anthropic, newMockClock(), time.Hour)

	got := svc.Categorize(context.Background(), "cars", "alice")

	if openai.count() != 1 || anthropic.count() != 0 {
		t.Errorf("expected default provider openai, got openai=%d anthropic=%d", openai.count(), anthropic.count())
	}
	if got.Error != "" {
		t.Errorf("resolver failure alone must not degrade the result, got %q", got.Error)
	}
}

func TestCategorizeEmptyUserSkipsResolver(t *testing.T) {
	openai := &countingClassifier{}
	resolver := &mockResolver{provider: ProviderAnthropic}
	svc := newTestService(resolver, openai, nil, newMockClock(), time.Hour)

	svc.Categorize(context.Background(), "cars", "")

	if resolver.calls != 0 {
		t.Errorf("resolver must not run for an anonymous submission, got %d calls", resolver.calls)
	}
	if openai.count() != 1 {
		t.Errorf("expected default provider openai, got %d calls", openai.count())
	}
}

func TestCategorizeUnknownProvider(t *testing.T) {
	resolver := &mockResolver{provider: Provider("mystery")}
	svc := newTestService(resolver, nil, nil, newMockClock(), time.Hour)

	got := svc.Categorize(context.Background(), "cars", "alice")

	if got.Categories[0] != "General" {
		t.Errorf("expected fallback result, got %+v", got)
	}
	if got.Error == "" {
		t.Error("missing classifier must tag the result with an error")
	}
}

func TestUseDefaultProvider(t *testing.T) {
	openai := &countingClassifier{}
	anthropic := &countingClassifier{}
	resolver := &mockResolver{err: errors.New("store down")}
	svc := newTestService(resolver, openai, anthropic, newMockClock(), time.Hour)

	svc.UseDefaultProvider(ProviderAnthropic)
	svc.Categorize(context.Background(), "cars", "alice")

	if anthropic.count() != 1 || openai.count() != 0 {
		t.Errorf("expected anthropic default, got openai=%d anthropic=%d", openai.count(), anthropic.count())
	}

	// Unknown providers are ignored.
	svc.UseDefaultProvider(Provider("mystery"))
	svc.Categorize(context.Background(), "eagles", "alice")

	if anthropic.count() != 2 {
		t.Errorf("expected the default to stay anthropic, got %d calls", anthropic.count())
	}
}

func TestCacheKey(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"Hello World", "hello world"},
		{"  padded  ", "padded"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	} {
		if got := cacheKey(tc.in); got != tc.want {
			t.Errorf("cacheKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProviderValid(t *testing.T) {
	if !ProviderOpenAI.Valid() || !ProviderAnthropic.Valid() {
		t.Error("known providers must be valid")
	}
	if Provider("gemini").Valid() {
		t.Error("unknown provider must be invalid")
	}
}
