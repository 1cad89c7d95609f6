package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/router"
	"github.com/yungbote/gradecraft/internal/learning/bundle"
	"github.com/yungbote/gradecraft/internal/learning/generator"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/learning/validation"
	"github.com/yungbote/gradecraft/internal/media/illustrate"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

type App struct {
	Log     *logger.Logger
	Config  *config.ProviderConfig
	Metrics *observability.Metrics

	Backend   *router.Router
	Validator validation.Interface
	Content   *generator.Generator
	Images    *illustrate.Router
	Bundles   *bundle.Builder

	shutdownOTel func(context.Context) error
}

// New loads configuration from the environment and wires every component.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "gradecraft",
		Environment: cfg.Env,
	})
	a, err := NewWithConfig(ctx, cfg, log, observability.Init(log))
	if err != nil {
		_ = shutdownOTel(ctx)
		log.Sync()
		return nil, err
	}
	a.shutdownOTel = shutdownOTel
	return a, nil
}

// NewWithConfig wires the components from an already loaded configuration.
// log and m may be nil.
func NewWithConfig(ctx context.Context, cfg *config.ProviderConfig, log *logger.Logger, m *observability.Metrics) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if log == nil {
		log = logger.NewNop()
	}
	catalog := prompts.Default()

	backend, err := router.NewFromConfig(ctx, cfg, router.BuildOptions{
		Prompts: catalog,
		Log:     log,
		Metrics: m,
	})
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	log.Info("backend ready", "primary", backend.Name(), "fallback", backend.FallbackName())

	validator := validation.New(m)

	// Model stays empty so a fallback backend uses its own default model.
	opts := generator.OptionsFrom(cfg.Generation)
	if bc, ok := cfg.Backend(backend.Name()); ok {
		opts.MaxTokens = bc.MaxTokens
	}
	opts.Metrics = m
	content := generator.New(backend, validator, catalog, opts, log)

	deps, err := wireImageDeps(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps.SVG = backend
	deps.Prompts = catalog
	deps.Log = log
	deps.Metrics = m
	images := illustrate.New(cfg.Images, deps)

	return &App{
		Log:       log,
		Config:    cfg,
		Metrics:   m,
		Backend:   backend,
		Validator: validator,
		Content:   content,
		Images:    images,
		Bundles:   bundle.New(content, backend, images, log),
	}, nil
}

// Close flushes traces and logs.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}

func hasKey(bc config.BackendConfig) bool {
	return strings.TrimSpace(bc.APIKey) != ""
}
