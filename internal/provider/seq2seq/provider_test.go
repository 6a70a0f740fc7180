package seq2seq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paratext/internal/config"
	"paratext/internal/models"
	"paratext/internal/provider"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New("seq2seq", config.ProviderConfig{
		BaseURL: srv.URL,
		Models:  []config.ModelConfig{{ID: "Wikidepia/IndoT5-base-paraphrase", APIStyle: config.APIStyleSeq2Seq}},
	}, srv.Client())
	require.NoError(t, err)
	return p
}

func TestGenerateSendsBeamParameters(t *testing.T) {
	var got generatePayload
	p := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"generated_text":"Aku suka makan nasi."}]`))
	})

	resp, err := p.Generate(context.Background(), models.GenerationRequest{
		Model: "Wikidepia/IndoT5-base-paraphrase",
		Input: "Saya suka makan nasi.",
		Params: models.GenerationParameters{
			Prefix:            "paraphrase: ",
			NumBeams:          4,
			NoRepeatNgramSize: 3,
			Temperature:       0.7,
			LengthPenalty:     1.0,
			MinLength:         8,
			MaxLength:         80,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Aku suka makan nasi.", resp.Text)

	require.Equal(t, "paraphrase: Saya suka makan nasi.", got.Inputs)
	require.Equal(t, 4, got.Parameters.NumBeams)
	require.Equal(t, 3, got.Parameters.NoRepeatNgramSize)
	require.Equal(t, 8, got.Parameters.MinLength)
	require.Equal(t, 80, got.Parameters.MaxLength)
	require.True(t, got.Parameters.EarlyStopping)
	require.False(t, got.Parameters.DoSample)
}

func TestBuildPayloadSamplesForSingleBeam(t *testing.T) {
	payload := buildPayload(models.GenerationRequest{
		Input:  "x y",
		Params: models.GenerationParameters{NumBeams: 1, Temperature: 0.95},
	})
	require.True(t, payload.Parameters.DoSample)
	require.False(t, payload.Parameters.EarlyStopping)
	require.Equal(t, "x y", payload.Inputs)
}

func TestDecodeGeneratedForms(t *testing.T) {
	text, err := decodeGenerated([]byte(` {"generated_text":"satu"}`))
	require.NoError(t, err)
	require.Equal(t, "satu", text)

	text, err = decodeGenerated([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, text)

	_, err = decodeGenerated([]byte(`nope`))
	require.Error(t, err)
}

func TestDeviceAndErrors(t *testing.T) {
	p := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/info":
			_, _ = w.Write([]byte(`{"device":"CUDA","model":"indot5"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"model loading"}`))
		}
	})

	device, err := p.Device(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cuda", device)

	_, err = p.Generate(context.Background(), models.GenerationRequest{Model: "m", Input: "halo dunia"})
	require.ErrorIs(t, err, provider.ErrTransient)
	require.ErrorContains(t, err, "model loading")
}
