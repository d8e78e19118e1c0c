package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// The two simulated backends stand in for real vendor classification
// APIs. Each applies its own keyword rules and returns its own wire
// shape; normalize folds both into Result.

// openaiPayload is the wire shape of the OpenAI-style backend.
type openaiPayload struct {
	Object    string   `json:"object"`
	Model     string   `json:"model"`
	Labels    []string `json:"labels"`
	Sentiment string   `json:"sentiment"`
	Score     float64  `json:"score"`
}

// anthropicPayload is the wire shape of the Anthropic-style backend.
type anthropicPayload struct {
	Model      string `json:"model"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// normalize folds a provider payload into the single Result shape.
// A payload that cannot be parsed or carries out-of-range fields is a
// shape error the caller converts to a fallback result.
func normalize(provider Provider, raw json.RawMessage) (Result, error) {
	switch provider {
	case ProviderOpenAI:
		var p openaiPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Result{}, fmt.Errorf("parsing openai payload: %w", err)
		}
		if len(p.Labels) == 0 {
			return Result{}, fmt.Errorf("openai payload has no labels")
		}
		r := Result{
			Categories: p.Labels,
			Sentiment:  p.Sentiment,
			Confidence: p.Score,
			Model:      p.Model,
		}
		return r, validateResult(r)

	case ProviderAnthropic:
		var p anthropicPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Result{}, fmt.Errorf("parsing anthropic payload: %w", err)
		}
		if len(p.Categories) == 0 {
			return Result{}, fmt.Errorf("anthropic payload has no categories")
		}
		categories := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			categories = append(categories, c.Name)
		}
		r := Result{
			Categories: categories,
			Sentiment:  p.Tone,
			Confidence: p.Confidence,
			Model:      p.Model,
		}
		return r, validateResult(r)

	default:
		return Result{}, fmt.Errorf("unknown provider %q", provider)
	}
}

func validateResult(r Result) error {
	switch r.Sentiment {
	case "positive", "neutral", "negative":
	default:
		return fmt.Errorf("invalid sentiment %q", r.Sentiment)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", r.Confidence)
	}
	return nil
}

// keywordRule maps trigger words to one category label. Rules are
// evaluated in order so category output stays insertion-ordered.
type keywordRule struct {
	label string
	words []string
}

var openaiRules = []keywordRule{
	{label: "Automotive", words: []string{"car", "cars", "engine", "vehicle", "driving", "horsepower"}},
	{label: "Wildlife", words: []string{"eagle", "bird", "birds", "fish", "wildlife", "creature"}},
	{label: "Marine", words: []string{"sea", "ocean", "diving", "coral", "reef", "underwater"}},
	{label: "Technology", words: []string{"computer", "software", "code", "robot"}},
	{label: "Travel", words: []string{"travel", "trip", "journey", "explore"}},
}

var anthropicRules = []keywordRule{
	{label: "Vehicles & Machines", words: []string{"muscle car", "classic car", "engine", "vehicle", "car"}},
	{label: "Nature & Wildlife", words: []string{"eagle", "majestic", "soar", "bird", "wildlife", "creature"}},
	{label: "Ocean Exploration", words: []string{"deep sea", "diving", "coral", "underwater", "ocean", "depths"}},
	{label: "Everyday Life", words: []string{"work", "family", "home", "morning"}},
}

var openaiPositiveWords = []string{"love", "fascinated", "beautiful", "incredible", "amazing", "great", "stunning"}
var openaiNegativeWords = []string{"hate", "terrible", "awful", "boring", "worst", "broken"}

var anthropicPositiveWords = []string{"majestic", "stunning", "love", "beautiful", "fascinated", "incredible", "raw power"}
var anthropicNegativeWords = []string{"dreadful", "hate", "awful", "disappointing", "bleak"}

func matchRules(rules []keywordRule, lower string) []string {
	var labels []string
	for _, rule := range rules {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				labels = append(labels, rule.label)
				break
			}
		}
	}
	return labels
}

func scoreSentiment(lower string, positive, negative []string) (string, int) {
	pos, neg := 0, 0
	for _, w := range positive {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negative {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return "positive", pos - neg
	case neg > pos:
		return "negative", neg - pos
	default:
		return "neutral", 0
	}
}

// OpenAIClassifier simulates the OpenAI-style classification endpoint.
type OpenAIClassifier struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewOpenAIClassifier creates the simulated OpenAI backend with a
// bounded random per-call delay. Zero delays disable sleeping (tests).
func NewOpenAIClassifier(minDelay, maxDelay time.Duration) *OpenAIClassifier {
	return &OpenAIClassifier{minDelay: minDelay, maxDelay: maxDelay}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (json.RawMessage, error) {
	if err := wait(ctx, randDuration(c.minDelay, c.maxDelay)); err != nil {
		return nil, err
	}

	lower := strings.ToLower(text)
	labels := matchRules(openaiRules, lower)
	if len(labels) == 0 {
		labels = []string{"General"}
	}
	sentiment, strength := scoreSentiment(lower, openaiPositiveWords, openaiNegativeWords)

	score := 0.6 + 0.08*float64(len(labels)) + 0.04*float64(strength)
	if score > 0.95 {
		score = 0.95
	}

	return json.Marshal(openaiPayload{
		Object:    "classification",
		Model:     "gpt-4o-mini",
		Labels:    labels,
		Sentiment: sentiment,
		Score:     score,
	})
}

// AnthropicClassifier simulates the Anthropic-style classification endpoint.
type AnthropicClassifier struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewAnthropicClassifier creates the simulated Anthropic backend with a
// bounded random per-call delay. Zero delays disable sleeping (tests).
func NewAnthropicClassifier(minDelay, maxDelay time.Duration) *AnthropicClassifier {
	return &AnthropicClassifier{minDelay: minDelay, maxDelay: maxDelay}
}

func (c *AnthropicClassifier) Classify(ctx context.Context, text string) (json.RawMessage, error) {
	if err := wait(ctx, randDuration(c.minDelay, c.maxDelay)); err != nil {
		return nil, err
	}

	lower := strings.ToLower(text)
	labels := matchRules(anthropicRules, lower)
	if len(labels) == 0 {
		labels = []string{"Miscellaneous"}
	}
	tone, strength := scoreSentiment(lower, anthropicPositiveWords, anthropicNegativeWords)

	confidence := 0.55 + 0.1*float64(len(labels)) + 0.05*float64(strength)
	if confidence > 0.9 {
		confidence = 0.9
	}

	payload := anthropicPayload{
		Model:      "claude-3-5-haiku",
		Tone:       tone,
		Confidence: confidence,
	}
	for _, l := range labels {
		payload.Categories = append(payload.Categories, struct {
			Name string `json:"name"`
		}{Name: l})
	}
	return json.Marshal(payload)
}

func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
