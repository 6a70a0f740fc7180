package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"

	"paratext/internal/models"
	"paratext/internal/provider"
)

const (
	defaultBackoffBase = 250 * time.Millisecond
	defaultBackoffMax  = 5 * time.Second
)

// Options tunes how requests reach providers.
type Options struct {
	// MaxConcurrent bounds in-flight generation calls across all requests.
	// 1 serialises calls for backends that are not safe for concurrent use.
	MaxConcurrent int64
	MaxRetries    uint64
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

// Router dispatches generation requests to the appropriate provider.
type Router struct {
	registry *provider.Registry
	sem      *semaphore.Weighted
	opts     Options
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry, opts Options) *Router {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = defaultBackoffMax
	}
	return &Router{
		registry: registry,
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		opts:     opts,
	}
}

// Resolve returns the canonical model for an ID or alias.
func (r *Router) Resolve(modelID string) (models.Model, provider.Provider, error) {
	return r.registry.LookupModel(modelID)
}

// Generate routes a generation request to the configured provider, retrying
// transient upstream failures with exponential backoff.
func (r *Router) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, models.Model, error) {
	modelInfo, providerImpl, err := r.registry.LookupModel(req.Model)
	if err != nil {
		return nil, models.Model{}, err
	}

	routed := req
	routed.Model = modelInfo.ID

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, models.Model{}, fmt.Errorf("wait for generation slot: %w", err)
	}
	defer r.sem.Release(1)

	backoff := retry.WithMaxRetries(r.opts.MaxRetries,
		retry.WithCappedDuration(r.opts.BackoffMax, retry.NewExponential(r.opts.BackoffBase)))

	var resp *models.GenerationResponse
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, callErr := providerImpl.Generate(ctx, routed)
		if callErr != nil {
			if errors.Is(callErr, provider.ErrTransient) {
				slog.Warn("transient provider failure, retrying",
					"provider", providerImpl.Name(),
					"model", modelInfo.ID,
					"attempt", attempt,
					"err", callErr,
				)
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, models.Model{}, fmt.Errorf("provider %s generate: %w", providerImpl.Name(), err)
	}
	if resp == nil {
		return nil, models.Model{}, fmt.Errorf("provider %s returned an empty response", providerImpl.Name())
	}
	return resp, modelInfo, nil
}

// ModelGenerator pins a router to one model so callers only supply text and
// decoding parameters.
type ModelGenerator struct {
	router *Router
	model  string
}

// ForModel binds the router to the canonical ID of modelID.
func (r *Router) ForModel(modelID string) (*ModelGenerator, models.Model, error) {
	modelInfo, _, err := r.registry.LookupModel(modelID)
	if err != nil {
		return nil, models.Model{}, err
	}
	return &ModelGenerator{router: r, model: modelInfo.ID}, modelInfo, nil
}

// Generate returns the trimmed text produced for input.
func (g *ModelGenerator) Generate(ctx context.Context, input string, params models.GenerationParameters) (string, error) {
	resp, _, err := g.router.Generate(ctx, models.GenerationRequest{Model: g.model, Input: input, Params: params})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
