package paraphrase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paratext/internal/config"
	"paratext/internal/models"
	"paratext/internal/provider"
	"paratext/internal/provider/seq2seq"
)

type call struct {
	input  string
	params models.GenerationParameters
}

type reply struct {
	text string
	err  error
}

// scriptedGenerator answers from a queue and then repeats its last reply.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

func script(replies ...reply) *scriptedGenerator {
	return &scriptedGenerator{replies: replies}
}

func (s *scriptedGenerator) Generate(_ context.Context, input string, params models.GenerationParameters) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{input: input, params: params})
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r.text, r.err
}

const chunk = "Saya suka makan nasi. Ini adalah kalimat kedua."

func TestGuardAcceptsPrimary(t *testing.T) {
	gen := script(reply{text: "Aku gemar menyantap nasi. Ini kalimat yang kedua."})
	g := NewGuard(gen, DefaultQualityGate(), Constrained, time.Second)

	out, outcome, err := g.Generate(context.Background(), chunk, Natural)
	require.NoError(t, err)
	require.Equal(t, OutcomePrimary, outcome)
	require.Equal(t, "Aku gemar menyantap nasi. Ini kalimat yang kedua.", out)
	require.Len(t, gen.calls, 1)
	require.Equal(t, chunk, gen.calls[0].input)
	require.Equal(t, PrimaryParams(8, Constrained), gen.calls[0].params)
}

func TestGuardFallsBackOnGarbage(t *testing.T) {
	gen := script(
		reply{text: "<extra_id_0>"},
		reply{text: "Nasi adalah makanan kesukaan saya."},
	)
	g := NewGuard(gen, DefaultQualityGate(), Throughput, time.Second)

	out, outcome, err := g.Generate(context.Background(), chunk, Natural)
	require.NoError(t, err)
	require.Equal(t, OutcomeFallback, outcome)
	require.Equal(t, "Nasi adalah makanan kesukaan saya.", out)
	require.Len(t, gen.calls, 2)
	require.Equal(t, "paraphrase: ", gen.calls[0].params.Prefix)
	require.Equal(t, 4, gen.calls[0].params.NumBeams)
	require.Empty(t, gen.calls[1].params.Prefix)
	require.Equal(t, 1, gen.calls[1].params.NumBeams)
}

func TestGuardReturnsOriginalWhenEverythingFails(t *testing.T) {
	transient := &provider.APIError{Provider: "fake", Status: http.StatusServiceUnavailable}
	tests := []struct {
		name string
		gen  *scriptedGenerator
	}{
		{name: "garbage", gen: script(reply{text: "!!! ???"})},
		{name: "empty", gen: script(reply{text: "   "})},
		{name: "transient errors", gen: script(reply{err: transient})},
		{name: "garbage then error", gen: script(reply{text: "<extra_id_3>"}, reply{err: transient})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.gen, DefaultQualityGate(), Constrained, time.Second)
			out, outcome, err := g.Generate(context.Background(), chunk, Longer)
			require.NoError(t, err)
			require.Equal(t, OutcomeOriginal, outcome)
			require.Equal(t, chunk, out)
			require.Len(t, tt.gen.calls, 3)
		})
	}
}

func TestGuardModeAttemptComesFirst(t *testing.T) {
	gen := script(reply{text: "Saya sangat menyukai makan nasi setiap hari. Ini kalimat kedua."})
	g := NewGuard(gen, DefaultQualityGate(), Constrained, time.Second)

	_, outcome, err := g.Generate(context.Background(), chunk, Longer)
	require.NoError(t, err)
	require.Equal(t, OutcomeMode, outcome)
	want, ok := Longer.Params(8, Constrained)
	require.True(t, ok)
	require.Equal(t, want, gen.calls[0].params)
	require.Equal(t, 20, gen.calls[0].params.MinLength)
}

func TestGuardModeFailureFallsThroughToPrimary(t *testing.T) {
	gen := script(
		reply{text: "x"},
		reply{text: "Kalimat hasil yang sama panjang."},
	)
	g := NewGuard(gen, DefaultQualityGate(), Constrained, time.Second)

	_, outcome, err := g.Generate(context.Background(), chunk, SameLength)
	require.NoError(t, err)
	require.Equal(t, OutcomePrimary, outcome)
	require.Equal(t, PrimaryParams(8, Constrained), gen.calls[1].params)
}

func TestGuardSurfacesUnavailableBackend(t *testing.T) {
	for _, err := range []error{
		&provider.APIError{Provider: "fake", Status: http.StatusUnauthorized},
		provider.ErrUnknownModel,
	} {
		gen := script(reply{err: err})
		g := NewGuard(gen, DefaultQualityGate(), Constrained, time.Second)

		_, _, got := g.Generate(context.Background(), chunk, Natural)
		require.ErrorIs(t, got, err)
		require.Len(t, gen.calls, 1)
	}
}

func TestGuardTreatsAttemptTimeoutAsFailure(t *testing.T) {
	var calls int
	slow := GeneratorFunc(func(ctx context.Context, _ string, _ models.GenerationParameters) (string, error) {
		calls++
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := NewGuard(slow, DefaultQualityGate(), Constrained, 5*time.Millisecond)

	out, outcome, err := g.Generate(context.Background(), chunk, Natural)
	require.NoError(t, err)
	require.Equal(t, OutcomeOriginal, outcome)
	require.Equal(t, chunk, out)
	require.Equal(t, 2, calls)
}

func TestGuardStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := GeneratorFunc(func(context.Context, string, models.GenerationParameters) (string, error) {
		cancel()
		return "", context.Canceled
	})
	g := NewGuard(gen, DefaultQualityGate(), Constrained, time.Second)

	_, _, err := g.Generate(ctx, chunk, Natural)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGuardFallsBackWhenHTTPClientTimesOut(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(300 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`[{"generated_text": "terlambat sekali"}]`))
	}))
	t.Cleanup(upstream.Close)

	backend, err := seq2seq.New("seq2seq", config.ProviderConfig{
		BaseURL: upstream.URL,
		Models:  []config.ModelConfig{{ID: "indot5", APIStyle: config.APIStyleSeq2Seq}},
	}, &http.Client{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	gen := GeneratorFunc(func(ctx context.Context, input string, params models.GenerationParameters) (string, error) {
		resp, err := backend.Generate(ctx, models.GenerationRequest{Model: "indot5", Input: input, Params: params})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
	g := NewGuard(gen, DefaultQualityGate(), Constrained, 5*time.Second)

	out, outcome, err := g.Generate(context.Background(), chunk, Natural)
	require.NoError(t, err)
	require.Equal(t, OutcomeOriginal, outcome)
	require.Equal(t, chunk, out)
}
