// Package router picks the generation backend once from config and dispatches every
// operation to it, retrying the same operation on the default backend when allowed.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

// Select resolves the primary backend id. Unknown ids, and restricted ids without
// ExperimentalEnabled, downgrade to the default provider with a warning.
func Select(cfg *config.ProviderConfig, log *logger.Logger) string {
	def := cfg.DefaultProvider
	if def == "" {
		def = config.ProviderOpenAI
	}
	id := cfg.Provider
	switch {
	case id == "":
		return def
	case !config.KnownProvider(id):
		log.Warn("unknown provider; using default", "provider", id, "default", def)
		return def
	case config.Restricted(id) && !cfg.ExperimentalEnabled:
		log.Warn("provider requires experimental_enabled; using default", "provider", id, "default", def)
		return def
	}
	return id
}

// Router holds only read-only state and is safe for concurrent use.
type Router struct {
	primary    engine.Backend
	fallback   engine.Backend
	primaryID  string
	fallbackID string
	log        *logger.Logger
	metrics    *observability.Metrics
}

var _ engine.Backend = (*Router)(nil)

// New selects the primary and wires the fallback from already-built backends.
// A primary without credentials is a config error; a fallback without credentials only
// disables fallback.
func New(cfg *config.ProviderConfig, backends map[string]engine.Backend, log *logger.Logger, m *observability.Metrics) (*Router, error) {
	if cfg == nil {
		return nil, generr.Config("", errors.New("nil provider config"))
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("component", "router")

	primaryID := Select(cfg, log)
	if err := cfg.RequireCredential(primaryID); err != nil {
		return nil, err
	}
	primary, ok := backends[primaryID]
	if !ok || primary == nil {
		return nil, generr.Config(primaryID, fmt.Errorf("backend %q not constructed", primaryID))
	}

	r := &Router{primary: primary, primaryID: primaryID, log: log, metrics: m}

	fallbackID := cfg.DefaultProvider
	if cfg.FallbackEnabled && fallbackID != "" && fallbackID != primaryID {
		switch fb, ok := backends[fallbackID]; {
		case cfg.RequireCredential(fallbackID) != nil:
			log.Warn("fallback backend has no credential; fallback disabled", "fallback", fallbackID)
		case !ok || fb == nil:
			log.Warn("fallback backend not constructed; fallback disabled", "fallback", fallbackID)
		default:
			r.fallback = fb
			r.fallbackID = fallbackID
		}
	}

	log.Info("provider selected", "primary", r.primaryID, "fallback", r.fallbackID)
	return r, nil
}

func (r *Router) Name() string { return r.primaryID }

// FallbackName is empty when fallback is disabled.
func (r *Router) FallbackName() string { return r.fallbackID }

func (r *Router) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	return dispatch(ctx, r, "chat", func(ctx context.Context, b engine.Backend) (engine.ChatResponse, error) {
		return b.Chat(ctx, req)
	})
}

func (r *Router) GenerateLesson(ctx context.Context, req engine.GenerationRequest) (string, error) {
	return dispatch(ctx, r, "generate_lesson", func(ctx context.Context, b engine.Backend) (string, error) {
		return b.GenerateLesson(ctx, req)
	})
}

func (r *Router) GenerateQuiz(ctx context.Context, req engine.GenerationRequest) ([]engine.QuizQuestion, error) {
	return dispatch(ctx, r, "generate_quiz", func(ctx context.Context, b engine.Backend) ([]engine.QuizQuestion, error) {
		return b.GenerateQuiz(ctx, req)
	})
}

func (r *Router) GenerateFeedback(ctx context.Context, req engine.FeedbackRequest) (string, error) {
	return dispatch(ctx, r, "generate_feedback", func(ctx context.Context, b engine.Backend) (string, error) {
		return b.GenerateFeedback(ctx, req)
	})
}

func (r *Router) GenerateKnowledgeGraph(ctx context.Context, req engine.GenerationRequest) (engine.KnowledgeGraph, error) {
	return dispatch(ctx, r, "generate_knowledge_graph", func(ctx context.Context, b engine.Backend) (engine.KnowledgeGraph, error) {
		return b.GenerateKnowledgeGraph(ctx, req)
	})
}

func dispatch[T any](ctx context.Context, r *Router, op string, call func(context.Context, engine.Backend) (T, error)) (T, error) {
	ctx, span := observability.Tracer("router").Start(ctx, "router."+op)
	defer span.End()
	span.SetAttributes(attribute.String("backend.primary", r.primaryID))

	start := time.Now()
	out, err := call(ctx, r.primary)
	r.metrics.ObserveDispatch(r.primaryID, op, err, time.Since(start))
	if err == nil {
		span.SetAttributes(attribute.String("backend.served", r.primaryID), attribute.Bool("fallback", false))
		r.log.Debug("dispatch served", "op", op, "backend", r.primaryID, "fallback", false)
		return out, nil
	}
	span.RecordError(err)

	if r.fallback == nil {
		span.SetStatus(codes.Error, "primary failed")
		r.log.Warn("dispatch failed", "op", op, "backend", r.primaryID, "error", err)
		return out, err
	}

	r.log.Warn("primary backend failed; falling back",
		"op", op,
		"backend", r.primaryID,
		"fallback", r.fallbackID,
		"error", err,
	)
	r.metrics.IncFallback(r.primaryID, r.fallbackID, op)

	start = time.Now()
	fbOut, fbErr := call(ctx, r.fallback)
	r.metrics.ObserveDispatch(r.fallbackID, op, fbErr, time.Since(start))
	if fbErr != nil {
		span.RecordError(fbErr)
		span.SetStatus(codes.Error, "fallback failed")
		r.log.Warn("fallback backend failed", "op", op, "backend", r.fallbackID, "error", fbErr)
		return fbOut, fmt.Errorf("fallback %s after %s failed: %w", r.fallbackID, r.primaryID, errors.Join(fbErr, err))
	}
	span.SetAttributes(attribute.String("backend.served", r.fallbackID), attribute.Bool("fallback", true))
	r.log.Info("dispatch served", "op", op, "backend", r.fallbackID, "fallback", true)
	return fbOut, nil
}
