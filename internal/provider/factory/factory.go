package factory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"paratext/internal/config"
	"paratext/internal/provider"
	claudeProvider "paratext/internal/provider/claude"
	geminiProvider "paratext/internal/provider/gemini"
	nvidiaProvider "paratext/internal/provider/nvidia"
	openaiProvider "paratext/internal/provider/openai"
	seq2seqProvider "paratext/internal/provider/seq2seq"
)

const (
	defaultHTTPTimeout     = 120 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

type constructor func(ctx context.Context, name string, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error)

var constructors = map[string]constructor{
	"openai": func(_ context.Context, name string, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		return openaiProvider.New(name, cfg, client)
	},
	"claude": func(_ context.Context, name string, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		return claudeProvider.New(name, cfg, client)
	},
	"nvidia": func(_ context.Context, name string, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		return nvidiaProvider.New(name, cfg, client)
	},
	"seq2seq": func(_ context.Context, name string, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		return seq2seqProvider.New(name, cfg, client)
	},
	"gemini": func(ctx context.Context, name string, cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
		return geminiProvider.New(ctx, name, cfg, client)
	},
}

// RegisterConfiguredProviders constructs providers from configuration and stores them in the registry.
func RegisterConfiguredProviders(ctx context.Context, cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	named := cfg.Providers.Named()
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		build, ok := constructors[name]
		if !ok {
			return fmt.Errorf("no constructor for provider %q", name)
		}
		providerCfg := named[name]

		p, err := build(ctx, name, providerCfg, newHTTPClient(defaultHTTPTimeout))
		if err != nil {
			return fmt.Errorf("initialise %s provider: %w", name, err)
		}
		if err := registry.RegisterProvider(ctx, p, providerCfg.Aliases); err != nil {
			return fmt.Errorf("register %s provider: %w", name, err)
		}
	}

	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
