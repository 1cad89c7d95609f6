package router

import (
	"context"
	"net/http"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/inference/engine/gemini"
	"github.com/yungbote/gradecraft/internal/inference/engine/mock"
	"github.com/yungbote/gradecraft/internal/inference/engine/oaihttp"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

type BuildOptions struct {
	Prompts    prompts.Catalog
	HTTPClient *http.Client
	Log        *logger.Logger
	Metrics    *observability.Metrics
}

// NewFromConfig builds the selected backend and, when usable, the fallback backend, then
// wraps them in a Router.
func NewFromConfig(ctx context.Context, cfg *config.ProviderConfig, opts BuildOptions) (*Router, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	primaryID := Select(cfg, log)
	if err := cfg.RequireCredential(primaryID); err != nil {
		return nil, err
	}

	backends := map[string]engine.Backend{}
	b, err := BuildBackend(ctx, cfg, primaryID, opts)
	if err != nil {
		return nil, err
	}
	backends[primaryID] = b

	if fb := cfg.DefaultProvider; cfg.FallbackEnabled && fb != "" && fb != primaryID && cfg.RequireCredential(fb) == nil {
		if b, err := BuildBackend(ctx, cfg, fb, opts); err != nil {
			log.Warn("fallback backend unavailable", "fallback", fb, "error", err)
		} else {
			backends[fb] = b
		}
	}
	return New(cfg, backends, log, opts.Metrics)
}

// BuildBackend constructs one backend by provider id.
func BuildBackend(ctx context.Context, cfg *config.ProviderConfig, id string, opts BuildOptions) (engine.Backend, error) {
	bc, ok := cfg.Backend(id)
	if !ok {
		return nil, generr.Config(id, errUnknown(id))
	}
	switch id {
	case config.ProviderOpenAI, config.ProviderLocal:
		e, err := oaihttp.New(bc, oaihttp.Options{
			Provider:   id,
			Prompts:    opts.Prompts,
			HTTPClient: opts.HTTPClient,
			Log:        opts.Log,
			Metrics:    opts.Metrics,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderGemini:
		e, err := gemini.New(ctx, bc, gemini.Options{
			Prompts:    opts.Prompts,
			HTTPClient: opts.HTTPClient,
			Log:        opts.Log,
			Metrics:    opts.Metrics,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ProviderMock:
		return mock.New(opts.Prompts), nil
	}
	return nil, generr.Config(id, errUnknown(id))
}

type errUnknown string

func (e errUnknown) Error() string { return "unknown provider " + string(e) }
