// Package transcribe defines the transcription provider contract and its
// simulated implementation.
package transcribe

import (
	"context"
	"math/rand/v2"
	"time"
)

// Transcriber produces the transcription text for a job. Implementations
// may be slow; they are expected to eventually return or fail.
type Transcriber interface {
	Transcribe(ctx context.Context, jobID string) (string, error)
}

// transcripts is the canned corpus the simulated provider draws from.
var transcripts = []string{
	"I've always been fascinated by cars, especially classic muscle cars from the 60s and 70s. The raw power and beautiful design of those vehicles is just incredible.",
	"Bald eagles are such majestic creatures. I love watching them soar through the sky and dive down to catch fish. Their white heads against the blue sky is a sight I'll never forget.",
	"Deep sea diving opens up a whole new world of exploration. The mysterious creatures and stunning coral reefs you encounter at those depths are unlike anything else on Earth.",
}

// Simulated is a stand-in transcription backend: a bounded random delay
// followed by a random canned transcript.
type Simulated struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// NewSimulated creates the simulated backend. Zero delays disable
// sleeping (tests).
func NewSimulated(minDelay, maxDelay time.Duration) *Simulated {
	return &Simulated{minDelay: minDelay, maxDelay: maxDelay}
}

func (s *Simulated) Transcribe(ctx context.Context, jobID string) (string, error) {
	d := s.minDelay
	if s.maxDelay > s.minDelay {
		d += rand.N(s.maxDelay - s.minDelay)
	}
	if d > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
	}
	return transcripts[rand.IntN(len(transcripts))], nil
}
