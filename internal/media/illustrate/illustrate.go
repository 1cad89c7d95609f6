// Package illustrate produces an image or diagram for a lesson by walking an ordered list
// of generation stages until one succeeds. The programmatic stage cannot fail.
package illustrate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/media/openaiimage"
	"github.com/yungbote/gradecraft/internal/media/raster"
	"github.com/yungbote/gradecraft/internal/media/svgsafe"
	"github.com/yungbote/gradecraft/internal/media/svgtemplate"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

const (
	StageHosted       = "hosted_image"
	StageLLMSVG       = "llm_svg"
	StageExternal     = "external_image"
	StageProgrammatic = "programmatic"

	kindImage   = "image"
	kindDiagram = "diagram"

	svgTemperature = 0.4
	svgMaxTokens   = 4000
)

type Result struct {
	ID          string `json:"id"`
	Base64Data  string `json:"base64Data,omitempty"`
	SVGData     string `json:"svgData,omitempty"`
	MimeType    string `json:"mimeType"`
	PromptUsed  string `json:"promptUsed"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
}

// Valid reports whether exactly one payload is set.
func (r *Result) Valid() bool {
	if r == nil {
		return false
	}
	return (r.Base64Data == "") != (r.SVGData == "")
}

type ImageOptions struct {
	// PreferRaster makes the programmatic stage draw a PNG card instead of an SVG.
	PreferRaster bool
	Labels       []string
}

// RasterFunc generates one raster image and returns its bytes and MIME type.
type RasterFunc func(ctx context.Context, prompt string) ([]byte, string, error)

// HostedFrom adapts the OpenAI images client.
func HostedFrom(c *openaiimage.Client) RasterFunc {
	if c == nil {
		return nil
	}
	return func(ctx context.Context, prompt string) ([]byte, string, error) {
		img, err := c.Generate(ctx, prompt)
		return img.Bytes, img.MimeType, err
	}
}

type Deps struct {
	Hosted   RasterFunc
	External RasterFunc
	// SVG is the text model asked for SVG markup.
	SVG     engine.Chatter
	Prompts prompts.Catalog
	Raster  *raster.Renderer
	Log     *logger.Logger
	Metrics *observability.Metrics
}

// Router holds read-only configuration and is safe for concurrent use.
type Router struct {
	cfg  config.ImageConfig
	deps Deps
	log  *logger.Logger
}

func New(cfg config.ImageConfig, deps Deps) *Router {
	if deps.Prompts == nil {
		deps.Prompts = prompts.Default()
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{cfg: cfg, deps: deps, log: log.With("component", "illustrate")}
}

type stage struct {
	name    string
	enabled bool
	timeout time.Duration
	run     func(ctx context.Context) (*Result, error)
}

// GenerateImage tries hosted image, LLM SVG, external image, then programmatic.
// The result is nil only when every stage is disabled.
func (r *Router) GenerateImage(ctx context.Context, prompt, description string, grade int, opts ImageOptions) (*Result, error) {
	in := prompts.NewInput(prompt, grade)
	in.Description = strings.TrimSpace(description)
	labels := opts.Labels
	if len(labels) == 0 {
		labels = svgtemplate.Labels(description, 3)
	}
	return r.walk(ctx, kindImage, in, []stage{
		r.rasterStage(StageHosted, r.cfg.HostedEnabled, r.cfg.HostedTimeout, r.deps.Hosted, in),
		r.svgStage(prompts.PromptImageSVG, in),
		r.rasterStage(StageExternal, r.cfg.ExternalEnabled, r.cfg.ExternalTimeout, r.deps.External, in),
		r.programmaticStage(in, "", labels, opts.PreferRaster),
	})
}

// GenerateDiagram tries LLM SVG first, then hosted image, external image and programmatic.
func (r *Router) GenerateDiagram(ctx context.Context, topic, diagramType string, grade int, description string) (*Result, error) {
	in := prompts.NewInput(topic, grade)
	in.DiagramType = strings.TrimSpace(diagramType)
	in.Description = strings.TrimSpace(description)
	rasterIn := in
	if in.DiagramType != "" {
		rasterIn.Description = strings.TrimSpace(in.DiagramType + " diagram. " + in.Description)
	}
	return r.walk(ctx, kindDiagram, in, []stage{
		r.svgStage(prompts.PromptDiagramSVG, in),
		r.rasterStage(StageHosted, r.cfg.HostedEnabled, r.cfg.HostedTimeout, r.deps.Hosted, rasterIn),
		r.rasterStage(StageExternal, r.cfg.ExternalEnabled, r.cfg.ExternalTimeout, r.deps.External, rasterIn),
		r.programmaticStage(in, in.DiagramType, svgtemplate.Labels(description, 6), false),
	})
}

func (r *Router) walk(ctx context.Context, kind string, in prompts.Input, stages []stage) (*Result, error) {
	ctx, span := observability.Tracer("illustrate").Start(ctx, "illustrate."+kind)
	defer span.End()
	span.SetAttributes(attribute.String("topic", in.Topic), attribute.Int("grade", in.GradeLevel))

	tried := 0
	for _, s := range stages {
		if !s.enabled {
			r.deps.Metrics.IncIllustrationStage(kind, s.name, "disabled")
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tried++
		res, err := r.runStage(ctx, s)
		if err != nil || !res.Valid() {
			if err == nil {
				err = errors.New("stage produced no result")
			}
			r.deps.Metrics.IncIllustrationStage(kind, s.name, "failed")
			r.log.Warn("illustration stage failed", "kind", kind, "stage", s.name, "error", err)
			continue
		}
		res.ID = uuid.NewString()
		res.Description = in.Description
		res.Stage = s.name
		r.deps.Metrics.IncIllustrationStage(kind, s.name, "ok")
		span.SetAttributes(attribute.String("stage", s.name))
		r.log.Debug("illustration served", "kind", kind, "stage", s.name)
		return res, nil
	}
	if tried == 0 {
		r.log.Warn("every illustration stage is disabled", "kind", kind)
	} else {
		r.log.Warn("no illustration stage succeeded", "kind", kind, "tried", tried)
	}
	return nil, nil
}

func (r *Router) runStage(ctx context.Context, s stage) (*Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.run(ctx)
}

func (r *Router) rasterStage(name string, enabled bool, timeout time.Duration, gen RasterFunc, in prompts.Input) stage {
	return stage{
		name:    name,
		enabled: enabled && gen != nil,
		timeout: timeout,
		run: func(ctx context.Context) (*Result, error) {
			p, err := r.deps.Prompts.Build(prompts.PromptImage, in)
			if err != nil {
				return nil, err
			}
			raw, mime, err := gen(ctx, p.User)
			if err != nil {
				return nil, err
			}
			if len(raw) == 0 {
				return nil, fmt.Errorf("%s returned no bytes", name)
			}
			if mime == "" {
				mime = "image/png"
			}
			return &Result{
				Base64Data: base64.StdEncoding.EncodeToString(raw),
				MimeType:   mime,
				PromptUsed: p.User,
			}, nil
		},
	}
}

func (r *Router) svgStage(name prompts.PromptName, in prompts.Input) stage {
	return stage{
		name:    StageLLMSVG,
		enabled: r.cfg.LLMSVGEnabled && r.deps.SVG != nil,
		timeout: r.cfg.LLMSVGTimeout,
		run: func(ctx context.Context) (*Result, error) {
			p, err := r.deps.Prompts.Build(name, in)
			if err != nil {
				return nil, err
			}
			resp, err := r.deps.SVG.Chat(ctx, engine.ChatRequest{
				Messages: []engine.Message{
					{Role: engine.RoleSystem, Content: p.System},
					{Role: engine.RoleUser, Content: p.User},
				},
				Temperature: svgTemperature,
				MaxTokens:   svgMaxTokens,
			})
			if err != nil {
				return nil, err
			}
			clean, ok := svgsafe.Sanitize(resp.Content())
			if !ok {
				return nil, errors.New("svg rejected by sanitizer")
			}
			return &Result{SVGData: clean, MimeType: "image/svg+xml", PromptUsed: p.User}, nil
		},
	}
}

func (r *Router) programmaticStage(in prompts.Input, diagramType string, labels []string, preferRaster bool) stage {
	return stage{
		name:    StageProgrammatic,
		enabled: r.cfg.ProgrammaticEnabled,
		run: func(context.Context) (*Result, error) {
			used := strings.TrimSpace(in.Topic + " " + diagramType)
			if preferRaster && r.deps.Raster != nil {
				raw, err := r.deps.Raster.Card(in.Topic, labels)
				if err == nil {
					return &Result{
						Base64Data: base64.StdEncoding.EncodeToString(raw),
						MimeType:   "image/png",
						PromptUsed: used,
					}, nil
				}
				r.log.Warn("raster card failed; drawing svg", "error", err)
			}
			return &Result{
				SVGData:    svgtemplate.Render(in.Topic, diagramType, labels),
				MimeType:   "image/svg+xml",
				PromptUsed: used,
			}, nil
		},
	}
}
