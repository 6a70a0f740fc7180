package paraphrase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"paratext/internal/models"
	"paratext/internal/provider"
)

// Generator produces text for one prepared input. Implementations must be
// safe for the concurrency they are given; the router serialises calls.
type Generator interface {
	Generate(ctx context.Context, input string, params models.GenerationParameters) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, input string, params models.GenerationParameters) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, input string, params models.GenerationParameters) (string, error) {
	return f(ctx, input, params)
}

// Outcome records which attempt produced a chunk's text.
type Outcome string

const (
	OutcomeMode     Outcome = "mode"
	OutcomePrimary  Outcome = "primary"
	OutcomeFallback Outcome = "fallback"
	OutcomeOriginal Outcome = "original"
)

// Guard wraps a Generator with sanitising, the quality gate, and fallbacks.
// It only fails for errors that no other attempt could fix.
type Guard struct {
	gen     Generator
	gate    QualityGate
	profile ComputeProfile
	timeout time.Duration
}

// NewGuard returns a Guard. A zero timeout leaves attempts bounded only by ctx.
func NewGuard(gen Generator, gate QualityGate, profile ComputeProfile, timeout time.Duration) *Guard {
	return &Guard{gen: gen, gate: gate, profile: profile, timeout: timeout}
}

type attempt struct {
	outcome Outcome
	input   string
	params  models.GenerationParameters
}

// Generate rewrites one chunk. Unless a fatal error is returned the text is
// never empty: it is the first attempt that passes the gate or the chunk itself.
func (g *Guard) Generate(ctx context.Context, chunk string, mode Mode) (string, Outcome, error) {
	words := WordCount(chunk)

	attempts := make([]attempt, 0, 3)
	if params, ok := mode.Params(words, g.profile); ok {
		attempts = append(attempts, attempt{outcome: OutcomeMode, input: chunk, params: params})
	}
	primary := PrimaryParams(words, g.profile)
	attempts = append(attempts,
		attempt{outcome: OutcomePrimary, input: chunk, params: primary},
		attempt{outcome: OutcomeFallback, input: chunk, params: FallbackParams(words)},
	)

	for _, a := range attempts {
		text, err := g.try(ctx, a)
		if err != nil {
			if fatal(ctx, err) {
				return "", "", err
			}
			slog.Warn("paraphrase attempt failed",
				"attempt", string(a.outcome),
				"mode", mode.String(),
				"words", words,
				"err", err,
			)
			continue
		}
		if g.gate.LooksBad(text) {
			slog.Warn("paraphrase attempt rejected by quality gate",
				"attempt", string(a.outcome),
				"mode", mode.String(),
				"words", words,
			)
			continue
		}
		return text, a.outcome, nil
	}
	return chunk, OutcomeOriginal, nil
}

func (g *Guard) try(ctx context.Context, a attempt) (string, error) {
	attemptCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	raw, err := g.gen.Generate(attemptCtx, a.input, a.params)
	if err != nil {
		return "", fmt.Errorf("%s attempt: %w", a.outcome, err)
	}
	return Sanitize(raw), nil
}

// fatal reports errors that must abort the whole request: the backend
// cannot serve at all, or the caller went away.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, provider.ErrUnavailable) || errors.Is(err, provider.ErrUnknownModel)
}
