package router

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paratext/internal/models"
	"paratext/internal/provider"
)

type scriptedProvider struct {
	mu       sync.Mutex
	errs     []error
	calls    int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) ListModels(context.Context) ([]models.Model, error) {
	return []models.Model{{ID: "indot5", Provider: "scripted"}}, nil
}

func (s *scriptedProvider) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &models.GenerationResponse{Text: "ok " + req.Model}, nil
}

func newRouter(t *testing.T, p provider.Provider, opts Options) *Router {
	t.Helper()
	reg := provider.NewRegistry()
	require.NoError(t, reg.RegisterProvider(context.Background(), p, map[string]string{"default": "indot5"}))
	opts.BackoffBase = time.Millisecond
	opts.BackoffMax = 2 * time.Millisecond
	return New(reg, opts)
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	transient := &provider.APIError{Provider: "scripted", Status: http.StatusServiceUnavailable, Message: "busy"}
	p := &scriptedProvider{errs: []error{transient, transient}}
	rt := newRouter(t, p, Options{MaxRetries: 2})

	resp, model, err := rt.Generate(context.Background(), models.GenerationRequest{Model: "default", Input: "halo"})
	require.NoError(t, err)
	require.Equal(t, "ok indot5", resp.Text)
	require.Equal(t, "indot5", model.ID)
	require.Equal(t, 3, p.calls)
}

func TestGenerateGivesUpAfterMaxRetries(t *testing.T) {
	transient := &provider.APIError{Provider: "scripted", Status: http.StatusTooManyRequests, Message: "slow"}
	p := &scriptedProvider{errs: []error{transient, transient, transient}}
	rt := newRouter(t, p, Options{MaxRetries: 1})

	_, _, err := rt.Generate(context.Background(), models.GenerationRequest{Model: "indot5", Input: "halo"})
	require.ErrorIs(t, err, provider.ErrTransient)
	require.Equal(t, 2, p.calls)
}

func TestGenerateDoesNotRetryPermanentFailures(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("bad payload")}}
	rt := newRouter(t, p, Options{MaxRetries: 3})

	_, _, err := rt.Generate(context.Background(), models.GenerationRequest{Model: "indot5", Input: "halo"})
	require.ErrorContains(t, err, "bad payload")
	require.Equal(t, 1, p.calls)

	_, _, err = rt.Generate(context.Background(), models.GenerationRequest{Model: "missing", Input: "halo"})
	require.ErrorIs(t, err, provider.ErrUnknownModel)
}

func TestGenerateSerialisesWithSingleSlot(t *testing.T) {
	p := &scriptedProvider{delay: 5 * time.Millisecond}
	rt := newRouter(t, p, Options{MaxConcurrent: 1})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := rt.Generate(context.Background(), models.GenerationRequest{Model: "indot5", Input: "halo"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), p.peak.Load())
	require.Equal(t, 4, p.calls)
}

func TestForModelPinsCanonicalModel(t *testing.T) {
	p := &scriptedProvider{}
	rt := newRouter(t, p, Options{})

	gen, model, err := rt.ForModel("default")
	require.NoError(t, err)
	require.Equal(t, "indot5", model.ID)

	out, err := gen.Generate(context.Background(), "halo", models.GenerationParameters{NumBeams: 2})
	require.NoError(t, err)
	require.Equal(t, "ok indot5", out)

	_, _, err = rt.ForModel("missing")
	require.ErrorIs(t, err, provider.ErrUnknownModel)
}
