// Package bundle builds everything a lesson page needs (text, quiz, knowledge graph and an
// illustration) in parallel.
package bundle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/generator"
	"github.com/yungbote/gradecraft/internal/learning/policy"
	"github.com/yungbote/gradecraft/internal/media/illustrate"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

type LessonQuizGenerator interface {
	GenerateLesson(ctx context.Context, grade int, topic string) (generator.LessonResult, error)
	GenerateQuiz(ctx context.Context, grade int, topic string, count int) (generator.QuizResult, error)
}

type GraphGenerator interface {
	GenerateKnowledgeGraph(ctx context.Context, req engine.GenerationRequest) (engine.KnowledgeGraph, error)
}

type Illustrator interface {
	GenerateDiagram(ctx context.Context, topic, diagramType string, grade int, description string) (*illustrate.Result, error)
}

type Request struct {
	Topic         string `json:"topic"`
	GradeLevel    int    `json:"gradeLevel"`
	QuestionCount int    `json:"questionCount"`
	DiagramType   string `json:"diagramType,omitempty"`
	Description   string `json:"description,omitempty"`
}

type Bundle struct {
	ID           string                 `json:"id"`
	Topic        string                 `json:"topic"`
	GradeLevel   int                    `json:"gradeLevel"`
	Band         string                 `json:"band"`
	Lesson       generator.LessonResult `json:"lesson"`
	Quiz         generator.QuizResult   `json:"quiz"`
	Graph        *engine.KnowledgeGraph `json:"knowledgeGraph,omitempty"`
	Illustration *illustrate.Result     `json:"illustration,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
}

type Builder struct {
	content LessonQuizGenerator
	graph   GraphGenerator
	images  Illustrator
	log     *logger.Logger
}

// New wires the builder. graph and images may be nil to skip those parts.
func New(content LessonQuizGenerator, graph GraphGenerator, images Illustrator, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Builder{content: content, graph: graph, images: images, log: log.With("component", "bundle")}
}

// Build fails when the lesson or quiz fails; graph and illustration failures become warnings.
func (b *Builder) Build(ctx context.Context, req Request) (Bundle, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return Bundle{}, fmt.Errorf("topic required")
	}
	out := Bundle{
		ID:         uuid.NewString(),
		Topic:      topic,
		GradeLevel: req.GradeLevel,
		Band:       string(policy.BandFor(req.GradeLevel)),
	}
	start := time.Now()

	var mu sync.Mutex
	warn := func(format string, args ...any) {
		mu.Lock()
		out.Warnings = append(out.Warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := b.content.GenerateLesson(gctx, req.GradeLevel, topic)
		if err != nil {
			return fmt.Errorf("lesson: %w", err)
		}
		out.Lesson = res
		return nil
	})
	g.Go(func() error {
		res, err := b.content.GenerateQuiz(gctx, req.GradeLevel, topic, req.QuestionCount)
		if err != nil {
			return fmt.Errorf("quiz: %w", err)
		}
		out.Quiz = res
		return nil
	})
	if b.graph != nil {
		g.Go(func() error {
			kg, err := b.graph.GenerateKnowledgeGraph(gctx, engine.GenerationRequest{Topic: topic, GradeLevel: req.GradeLevel})
			if err != nil {
				warn("knowledge graph: %v", err)
				return nil
			}
			out.Graph = &kg
			return nil
		})
	}
	if b.images != nil {
		g.Go(func() error {
			res, err := b.images.GenerateDiagram(gctx, topic, req.DiagramType, req.GradeLevel, req.Description)
			switch {
			case err != nil:
				warn("illustration: %v", err)
			case res == nil:
				warn("illustration: every stage disabled")
			default:
				out.Illustration = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		b.log.Warn("bundle failed", "topic", topic, "grade", req.GradeLevel, "error", err)
		return Bundle{}, err
	}
	if !out.Lesson.Validation.IsValid {
		warn("lesson has unresolved issues after %d attempts", out.Lesson.Attempts)
	}
	if !out.Quiz.Validation.IsValid {
		warn("quiz has unresolved issues after %d attempts", out.Quiz.Attempts)
	}
	b.log.Info("bundle built",
		"id", out.ID,
		"topic", topic,
		"band", out.Band,
		"warnings", len(out.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
