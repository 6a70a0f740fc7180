package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	APIStyleOpenAI  = "openai"
	APIStyleClaude  = "claude"
	APIStyleGemini  = "gemini"
	APIStyleSeq2Seq = "seq2seq"
)

const (
	DeviceCPU  = "cpu"
	DeviceGPU  = "gpu"
	DeviceAuto = "auto"
)

const (
	defaultMaxBodyBytes       = 16 << 20 // 16 MiB
	defaultReadTimeoutSecs    = 30
	defaultWriteTimeoutSecs   = 900
	defaultMaxWordsCPU        = 100
	defaultMaxWordsGPU        = 140
	defaultChunkTimeoutSecs   = 60
	defaultMaxConcurrent      = 1
	defaultMaxRetries         = 2
	defaultQualityMinWords    = 2
	defaultQualitySymbolRatio = 0.2
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Paraphrase ParaphraseConfig `yaml:"paraphrase"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port             int     `yaml:"port"`
	MaxBodyBytes     int64   `yaml:"max_body_bytes"`
	RateLimit        float64 `yaml:"rate_limit"`
	ReadTimeoutSecs  int     `yaml:"read_timeout"`
	WriteTimeoutSecs int     `yaml:"write_timeout"`
}

// ReadTimeout returns the configured read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the configured write timeout. It bounds the whole
// response including the paraphrase run: a document of N chunks may take up
// to 3·N·chunk_timeout_seconds, and past this deadline the connection closes
// and the result is lost.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

// ProvidersConfig catalogues configured generation backends. Every block is optional.
type ProvidersConfig struct {
	OpenAI  *ProviderConfig `yaml:"openai"`
	Claude  *ProviderConfig `yaml:"claude"`
	NVIDIA  *ProviderConfig `yaml:"nvidia"`
	Gemini  *ProviderConfig `yaml:"gemini"`
	Seq2Seq *ProviderConfig `yaml:"seq2seq"`
}

// Named returns the configured providers keyed by name.
func (p ProvidersConfig) Named() map[string]ProviderConfig {
	out := make(map[string]ProviderConfig)
	for name, cfg := range map[string]*ProviderConfig{
		"openai":  p.OpenAI,
		"claude":  p.Claude,
		"nvidia":  p.NVIDIA,
		"gemini":  p.Gemini,
		"seq2seq": p.Seq2Seq,
	} {
		if cfg != nil {
			out[name] = *cfg
		}
	}
	return out
}

// ProviderConfig captures authentication and routing info for a provider.
type ProviderConfig struct {
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Models  []ModelConfig     `yaml:"models"`
	Headers Headers           `yaml:"headers"`
	Aliases map[string]string `yaml:"aliases"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ModelConfig describes a model exposed by a provider.
type ModelConfig struct {
	ID       string `yaml:"id"`
	APIStyle string `yaml:"api_style"`
}

// ParaphraseConfig tunes the chunking and regeneration pipeline.
// ChunkTimeoutSecs and MaxRetries are pointers so that an explicit 0 (no
// per-attempt bound, no retries) differs from unset (the defaults).
type ParaphraseConfig struct {
	Model                    string        `yaml:"model"`
	Device                   string        `yaml:"device"`
	MaxWordsConstrained      int           `yaml:"max_words_constrained"`
	MaxWordsThroughput       int           `yaml:"max_words_throughput"`
	ChunkTimeoutSecs         *int          `yaml:"chunk_timeout_seconds"`
	MaxConcurrentGenerations int64         `yaml:"max_concurrent_generations"`
	MaxRetries               *uint64       `yaml:"max_retries"`
	Quality                  QualityConfig `yaml:"quality"`
}

// ChunkTimeout returns the per-attempt generation deadline, zero when unbounded.
func (p ParaphraseConfig) ChunkTimeout() time.Duration {
	if p.ChunkTimeoutSecs == nil {
		return 0
	}
	return time.Duration(*p.ChunkTimeoutSecs) * time.Second
}

// WorstCaseChunks is how many chunks fit in the write timeout when every
// attempt runs into the chunk timeout. bounded is false when either timeout
// is disabled.
func (c Config) WorstCaseChunks() (chunks int, bounded bool) {
	perChunk := 3 * c.Paraphrase.ChunkTimeout()
	if perChunk <= 0 || c.Server.WriteTimeout() <= 0 {
		return 0, false
	}
	return int(c.Server.WriteTimeout() / perChunk), true
}

// Retries returns how often a transient failure is retried.
func (p ParaphraseConfig) Retries() uint64 {
	if p.MaxRetries == nil {
		return 0
	}
	return *p.MaxRetries
}

// QualityConfig holds the heuristic thresholds of the output quality gate.
type QualityConfig struct {
	MinWords       int     `yaml:"min_words"`
	MaxSymbolRatio float64 `yaml:"max_symbol_ratio"`
}

// Load reads YAML configuration from disk, expands ${VAR} references,
// applies defaults and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes into a validated Config.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = defaultReadTimeoutSecs
	}
	if c.Server.WriteTimeoutSecs == 0 {
		c.Server.WriteTimeoutSecs = defaultWriteTimeoutSecs
	}

	p := &c.Paraphrase
	if p.Device == "" {
		p.Device = DeviceAuto
	}
	p.Device = strings.ToLower(strings.TrimSpace(p.Device))
	if p.MaxWordsConstrained == 0 {
		p.MaxWordsConstrained = defaultMaxWordsCPU
	}
	if p.MaxWordsThroughput == 0 {
		p.MaxWordsThroughput = defaultMaxWordsGPU
	}
	if p.ChunkTimeoutSecs == nil {
		p.ChunkTimeoutSecs = ptr(defaultChunkTimeoutSecs)
	}
	if p.MaxConcurrentGenerations == 0 {
		p.MaxConcurrentGenerations = defaultMaxConcurrent
	}
	if p.MaxRetries == nil {
		p.MaxRetries = ptr(uint64(defaultMaxRetries))
	}
	if p.Quality.MinWords == 0 {
		p.Quality.MinWords = defaultQualityMinWords
	}
	if p.Quality.MaxSymbolRatio == 0 {
		p.Quality.MaxSymbolRatio = defaultQualitySymbolRatio
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}

	providers := c.Providers.Named()
	if len(providers) == 0 {
		return errors.New("at least one provider must be configured")
	}
	for name, provider := range providers {
		if err := validateProvider(name, provider); err != nil {
			return err
		}
	}

	return c.Paraphrase.validate()
}

func (p ParaphraseConfig) validate() error {
	if strings.TrimSpace(p.Model) == "" {
		return errors.New("paraphrase.model must be provided")
	}
	switch p.Device {
	case DeviceCPU, DeviceGPU, DeviceAuto:
	default:
		return fmt.Errorf("paraphrase.device %q must be one of %q, %q or %q", p.Device, DeviceCPU, DeviceGPU, DeviceAuto)
	}
	if p.MaxWordsConstrained < 1 || p.MaxWordsThroughput < 1 {
		return errors.New("paraphrase max_words budgets must be at least 1")
	}
	if p.ChunkTimeoutSecs != nil && *p.ChunkTimeoutSecs < 0 {
		return fmt.Errorf("paraphrase.chunk_timeout_seconds must not be negative, got %d", *p.ChunkTimeoutSecs)
	}
	if p.MaxConcurrentGenerations < 1 {
		return fmt.Errorf("paraphrase.max_concurrent_generations must be at least 1, got %d", p.MaxConcurrentGenerations)
	}
	if p.Quality.MinWords < 1 {
		return fmt.Errorf("paraphrase.quality.min_words must be at least 1, got %d", p.Quality.MinWords)
	}
	if p.Quality.MaxSymbolRatio <= 0 || p.Quality.MaxSymbolRatio > 1 {
		return fmt.Errorf("paraphrase.quality.max_symbol_ratio must be in (0, 1], got %v", p.Quality.MaxSymbolRatio)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func validateProvider(name string, provider ProviderConfig) error {
	if strings.TrimSpace(provider.BaseURL) == "" && name != "gemini" {
		return fmt.Errorf("provider %s: base_url must be provided", name)
	}
	if strings.TrimSpace(provider.APIKey) == "" && name != "seq2seq" {
		return fmt.Errorf("provider %s: api_key must be provided", name)
	}
	if len(provider.Models) == 0 {
		return fmt.Errorf("provider %s: at least one model must be configured", name)
	}

	for _, model := range provider.Models {
		if strings.TrimSpace(model.ID) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", name)
		}
		if err := validateAPIStyle(name, model.APIStyle); err != nil {
			return err
		}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	for alias, target := range provider.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("provider %s: alias name must not be empty", name)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("provider %s: alias %q target must not be empty", name, alias)
		}
	}

	return nil
}

// allowedStyles lists the api styles each provider block accepts.
var allowedStyles = map[string][]string{
	"openai":  {APIStyleOpenAI},
	"claude":  {APIStyleClaude},
	"nvidia":  {APIStyleOpenAI, APIStyleClaude},
	"gemini":  {APIStyleGemini},
	"seq2seq": {APIStyleSeq2Seq},
}

func validateAPIStyle(providerName, style string) error {
	allowed := allowedStyles[providerName]
	for _, s := range allowed {
		if s == style {
			return nil
		}
	}
	return fmt.Errorf("provider %s: model api_style %q must be one of %q", providerName, style, allowed)
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
