package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 8080
providers:
  seq2seq:
    base_url: http://localhost:9000
    models:
      - id: Wikidepia/IndoT5-base-paraphrase
        api_style: seq2seq
    aliases:
      indot5: Wikidepia/IndoT5-base-paraphrase
  openai:
    api_key: ${PARATEXT_TEST_OPENAI_KEY}
    base_url: https://api.openai.com/v1
    models:
      - id: gpt-4o-mini
        api_style: openai
paraphrase:
  model: indot5
`

func TestParseAppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("PARATEXT_TEST_OPENAI_KEY", "sk-test")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	require.Equal(t, int64(16<<20), cfg.Server.MaxBodyBytes)
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout())
	require.Equal(t, DeviceAuto, cfg.Paraphrase.Device)
	require.Equal(t, 100, cfg.Paraphrase.MaxWordsConstrained)
	require.Equal(t, 140, cfg.Paraphrase.MaxWordsThroughput)
	require.Equal(t, time.Minute, cfg.Paraphrase.ChunkTimeout())
	require.Equal(t, int64(1), cfg.Paraphrase.MaxConcurrentGenerations)
	require.Equal(t, 2, cfg.Paraphrase.Quality.MinWords)
	require.InDelta(t, 0.2, cfg.Paraphrase.Quality.MaxSymbolRatio, 1e-9)
	require.Len(t, cfg.Providers.Named(), 2)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"bad port": `
server: {port: 0}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m}`,
		"no providers": `
server: {port: 80}
paraphrase: {model: m}`,
		"missing model": `
server: {port: 80}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}`,
		"wrong style": `
server: {port: 80}
providers:
  claude: {api_key: k, base_url: http://x, models: [{id: m, api_style: openai}]}
paraphrase: {model: m}`,
		"missing key": `
server: {port: 80}
providers:
  openai: {base_url: http://x, models: [{id: m, api_style: openai}]}
paraphrase: {model: m}`,
		"bad device": `
server: {port: 80}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m, device: tpu}`,
		"bad ratio": `
server: {port: 80}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m, quality: {max_symbol_ratio: 1.5}}`,
		"bad header": `
server: {port: 80}
providers:
  seq2seq: {base_url: http://x, headers: {"X_Bad": v}, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	t.Setenv("PARATEXT_TEST_OPENAI_KEY", "sk-file")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config file")
}

const zeroRetriesConfig = `
server: {port: 80, write_timeout: 900}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m, max_retries: 0, chunk_timeout_seconds: 0}`

func TestParseKeepsExplicitZeros(t *testing.T) {
	cfg, err := Parse([]byte(zeroRetriesConfig))
	require.NoError(t, err)
	require.Zero(t, cfg.Paraphrase.Retries())
	require.Zero(t, cfg.Paraphrase.ChunkTimeout())
	_, bounded := cfg.WorstCaseChunks()
	require.False(t, bounded)

	cfg, err = Parse([]byte(sampleConfigNoEnv))
	require.NoError(t, err)
	require.Equal(t, uint64(2), cfg.Paraphrase.Retries())
	require.Equal(t, time.Minute, cfg.Paraphrase.ChunkTimeout())
}

const sampleConfigNoEnv = `
server: {port: 80, write_timeout: 900}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m}`

func TestWorstCaseChunks(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfigNoEnv))
	require.NoError(t, err)
	n, bounded := cfg.WorstCaseChunks()
	require.True(t, bounded)
	require.Equal(t, 5, n)

	cfg.Server.WriteTimeoutSecs = 120
	n, bounded = cfg.WorstCaseChunks()
	require.True(t, bounded)
	require.Zero(t, n)
}

func TestParseRejectsNegativeChunkTimeout(t *testing.T) {
	_, err := Parse([]byte(`
server: {port: 80}
providers:
  seq2seq: {base_url: http://x, models: [{id: m, api_style: seq2seq}]}
paraphrase: {model: m, chunk_timeout_seconds: -1}`))
	require.ErrorContains(t, err, "chunk_timeout_seconds")
}
