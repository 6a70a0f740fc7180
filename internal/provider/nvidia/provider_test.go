package nvidia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"paratext/internal/config"
	"paratext/internal/models"
	"paratext/internal/provider"
)

func TestGenerateRoutesByAPIStyle(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"dari openai"}}]}`))
		case "/v1/messages":
			_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"dari claude"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := New("nvidia", config.ProviderConfig{
		APIKey:  "nv",
		BaseURL: srv.URL,
		Models: []config.ModelConfig{
			{ID: "meta/llama", APIStyle: "OpenAI"},
			{ID: "nv/claude", APIStyle: config.APIStyleClaude},
		},
	}, srv.Client())
	require.NoError(t, err)

	listed, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, config.APIStyleOpenAI, listed[0].APIStyle)

	resp, err := p.Generate(context.Background(), models.GenerationRequest{Model: "meta/llama", Input: "halo"})
	require.NoError(t, err)
	require.Equal(t, "dari openai", resp.Text)

	resp, err = p.Generate(context.Background(), models.GenerationRequest{Model: "nv/claude", Input: "halo"})
	require.NoError(t, err)
	require.Equal(t, "dari claude", resp.Text)
	require.Equal(t, []string{"/chat/completions", "/v1/messages"}, paths)

	_, err = p.Generate(context.Background(), models.GenerationRequest{Model: "other", Input: "halo"})
	require.ErrorIs(t, err, provider.ErrUnknownModel)
}
