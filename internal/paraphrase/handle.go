package paraphrase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"paratext/internal/models"
)

// Backend is everything a request needs once the model is ready.
type Backend struct {
	Pipeline *Pipeline
	Profile  ComputeProfile
	Model    models.Model
}

// Loader builds the backend. It may be slow and may fail.
type Loader func(ctx context.Context) (*Backend, error)

// Handle lazily builds one Backend per process. Concurrent first callers
// wait for a single load; a failed load is retried by the next caller.
type Handle struct {
	load    Loader
	mu      sync.Mutex
	backend atomic.Pointer[Backend]
}

func NewHandle(load Loader) *Handle {
	return &Handle{load: load}
}

// Get returns the backend, loading it on first use.
func (h *Handle) Get(ctx context.Context) (*Backend, error) {
	if b := h.backend.Load(); b != nil {
		return b, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if b := h.backend.Load(); b != nil {
		return b, nil
	}

	b, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	h.backend.Store(b)
	return b, nil
}

// Loaded reports whether a backend is ready without triggering a load.
func (h *Handle) Loaded() bool {
	return h.backend.Load() != nil
}

// ErrEmptyInput is returned for documents with no text to rewrite.
var ErrEmptyInput = errors.New("text must not be empty")

// ErrSetup wraps failures that leave no usable backend for a request.
var ErrSetup = errors.New("paraphraser unavailable")

// Paraphrase runs document through the lazily loaded backend. Any error other
// than ErrEmptyInput wraps ErrSetup; no partial output is returned.
func (h *Handle) Paraphrase(ctx context.Context, document string, mode Mode) (Result, error) {
	if strings.TrimSpace(document) == "" {
		return Result{}, ErrEmptyInput
	}
	b, err := h.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: load backend: %w", ErrSetup, err)
	}
	res, err := b.Pipeline.Run(ctx, document, mode)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return res, nil
}
