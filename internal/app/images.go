package app

import (
	"context"
	"fmt"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine/gemini"
	"github.com/yungbote/gradecraft/internal/media/illustrate"
	"github.com/yungbote/gradecraft/internal/media/imagen"
	"github.com/yungbote/gradecraft/internal/media/openaiimage"
	"github.com/yungbote/gradecraft/internal/media/raster"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

// wireImageDeps builds the raster providers the image router can use. A provider without
// credentials is skipped with a warning; the router then moves on to the next stage.
func wireImageDeps(ctx context.Context, cfg *config.ProviderConfig, log *logger.Logger) (illustrate.Deps, error) {
	var deps illustrate.Deps
	ic := cfg.Images

	if ic.HostedEnabled {
		if hasKey(cfg.OpenAI) {
			c, err := openaiimage.New(openaiimage.Config{
				BaseURL: cfg.OpenAI.BaseURL,
				APIKey:  cfg.OpenAI.APIKey,
				Model:   ic.HostedModel,
				Size:    ic.HostedSize,
			}, nil)
			if err != nil {
				return deps, fmt.Errorf("init hosted images: %w", err)
			}
			deps.Hosted = illustrate.HostedFrom(c)
		} else {
			log.Warn("hosted image stage enabled without OPENAI_API_KEY; skipping")
		}
	}

	if ic.ExternalEnabled {
		if hasKey(cfg.Gemini) {
			client, err := gemini.NewClient(ctx, cfg.Gemini, nil)
			if err != nil {
				return deps, fmt.Errorf("init external images: %w", err)
			}
			c, err := imagen.New(client, ic.ExternalModel)
			if err != nil {
				return deps, fmt.Errorf("init external images: %w", err)
			}
			deps.External = c.Generate
		} else {
			log.Warn("external image stage enabled without GEMINI_API_KEY; skipping")
		}
	}

	r, err := raster.New(ic.FontPath)
	if err != nil {
		log.Warn("raster font unavailable; programmatic stage draws svg only", "font_path", ic.FontPath, "error", err)
	} else {
		deps.Raster = r
	}
	return deps, nil
}
