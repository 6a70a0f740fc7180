package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"paratext/internal/config"
	"paratext/internal/paraphrase"
	"paratext/internal/provider"
	providerfactory "paratext/internal/provider/factory"
	"paratext/internal/router"
)

// newBackendLoader builds the provider registry and the paraphrase pipeline
// for the configured model.
func newBackendLoader(cfg config.Config) paraphrase.Loader {
	return func(ctx context.Context) (*paraphrase.Backend, error) {
		registry := provider.NewRegistry()
		if err := providerfactory.RegisterConfiguredProviders(ctx, cfg, registry); err != nil {
			return nil, err
		}

		rt := router.New(registry, router.Options{
			MaxConcurrent: cfg.Paraphrase.MaxConcurrentGenerations,
			MaxRetries:    cfg.Paraphrase.Retries(),
		})
		gen, model, err := rt.ForModel(cfg.Paraphrase.Model)
		if err != nil {
			return nil, fmt.Errorf("resolve paraphrase model %q: %w", cfg.Paraphrase.Model, err)
		}
		_, backend, err := rt.Resolve(model.ID)
		if err != nil {
			return nil, err
		}

		profile := detectProfile(ctx, cfg.Paraphrase.Device, backend)
		maxWords := cfg.Paraphrase.MaxWordsConstrained
		if profile == paraphrase.Throughput {
			maxWords = cfg.Paraphrase.MaxWordsThroughput
		}

		gate := paraphrase.QualityGate{
			MinWords:       cfg.Paraphrase.Quality.MinWords,
			MaxSymbolRatio: cfg.Paraphrase.Quality.MaxSymbolRatio,
		}
		guard := paraphrase.NewGuard(gen, gate, profile, cfg.Paraphrase.ChunkTimeout())

		slog.Info("paraphrase backend ready",
			"model", model.ID,
			"provider", model.Provider,
			"profile", profile.String(),
			"max_words", maxWords,
			"registered", registry.ModelIDs(),
		)
		return &paraphrase.Backend{
			Pipeline: paraphrase.NewPipeline(guard, maxWords),
			Profile:  profile,
			Model:    model,
		}, nil
	}
}

// detectProfile maps the configured device onto a compute profile. For
// "auto" the backend is asked, and anything but a GPU answer is constrained.
func detectProfile(ctx context.Context, device string, backend provider.Provider) paraphrase.ComputeProfile {
	switch device {
	case config.DeviceCPU:
		return paraphrase.Constrained
	case config.DeviceGPU:
		return paraphrase.Throughput
	}

	reporter, ok := backend.(provider.DeviceReporter)
	if !ok {
		return paraphrase.Constrained
	}
	reported, err := reporter.Device(ctx)
	if err != nil {
		slog.Warn("device detection failed, assuming cpu", "provider", backend.Name(), "err", err)
		return paraphrase.Constrained
	}
	switch reported {
	case "cuda", "gpu", "mps":
		return paraphrase.Throughput
	default:
		return paraphrase.Constrained
	}
}
