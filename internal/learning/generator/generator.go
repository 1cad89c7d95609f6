// Package generator produces lessons and quizzes that are re-prompted with validator feedback
// until they fit the student's grade or the attempt budget runs out.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/learning/validation"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

const (
	kindLesson = "lesson"
	kindQuiz   = "quiz"

	defaultQuestionCount = 5
)

type Options struct {
	LessonMaxAttempts int
	QuizMaxAttempts   int
	LessonBaseTemp    float64
	QuizBaseTemp      float64
	TempStep          float64

	Model     string
	MaxTokens int
	Metrics   *observability.Metrics
}

func DefaultOptions() Options {
	return Options{
		LessonMaxAttempts: 2,
		QuizMaxAttempts:   3,
		LessonBaseTemp:    0.6,
		QuizBaseTemp:      0.4,
		TempStep:          0.1,
	}
}

// OptionsFrom copies the attempt caps and temperatures from the provider config.
func OptionsFrom(g config.GenerationConfig) Options {
	return Options{
		LessonMaxAttempts: g.LessonMaxAttempts,
		QuizMaxAttempts:   g.QuizMaxAttempts,
		LessonBaseTemp:    g.LessonBaseTemp,
		QuizBaseTemp:      g.QuizBaseTemp,
		TempStep:          g.TempStep,
	}
}

type Generator struct {
	chat      engine.Chatter
	validator validation.Interface
	catalog   prompts.Catalog
	opts      Options
	log       *logger.Logger
}

type LessonResult struct {
	Text       string            `json:"text"`
	Attempts   int               `json:"attempts"`
	Validation validation.Result `json:"validation"`
}

type QuizResult struct {
	Questions  []engine.QuizQuestion `json:"questions"`
	Attempts   int                   `json:"attempts"`
	Validation validation.Result     `json:"validation"`
}

func New(chat engine.Chatter, validator validation.Interface, catalog prompts.Catalog, opts Options, log *logger.Logger) *Generator {
	def := DefaultOptions()
	if opts.LessonMaxAttempts < 1 {
		opts.LessonMaxAttempts = def.LessonMaxAttempts
	}
	if opts.QuizMaxAttempts < 1 {
		opts.QuizMaxAttempts = def.QuizMaxAttempts
	}
	if opts.TempStep <= 0 {
		opts.TempStep = def.TempStep
	}
	if validator == nil {
		validator = validation.Default
	}
	if catalog == nil {
		catalog = prompts.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{
		chat:      chat,
		validator: validator,
		catalog:   catalog,
		opts:      opts,
		log:       log.With("component", "generator"),
	}
}

func (g *Generator) GenerateLesson(ctx context.Context, grade int, topic string) (LessonResult, error) {
	in := prompts.NewInput(topic, grade)
	out, err := run(ctx, g, loop[string]{
		kind:        kindLesson,
		prompt:      prompts.PromptLesson,
		in:          in,
		maxAttempts: g.opts.LessonMaxAttempts,
		baseTemp:    g.opts.LessonBaseTemp,
		parse: func(content string) (string, error) {
			return strings.TrimSpace(content), nil
		},
		validate: func(text string) validation.Result {
			return g.validator.ValidateLesson(text, grade)
		},
	})
	if err != nil {
		return LessonResult{}, err
	}
	return LessonResult{Text: out.value, Attempts: out.attempts, Validation: out.result}, nil
}

func (g *Generator) GenerateQuiz(ctx context.Context, grade int, topic string, count int) (QuizResult, error) {
	if count <= 0 {
		count = defaultQuestionCount
	}
	in := prompts.NewInput(topic, grade)
	in.QuestionCount = count
	out, err := run(ctx, g, loop[[]engine.QuizQuestion]{
		kind:        kindQuiz,
		prompt:      prompts.PromptQuiz,
		in:          in,
		maxAttempts: g.opts.QuizMaxAttempts,
		baseTemp:    g.opts.QuizBaseTemp,
		parse:       engine.ParseQuiz,
		validate: func(qs []engine.QuizQuestion) validation.Result {
			return g.validator.ValidateQuiz(qs, grade)
		},
	})
	if err != nil {
		return QuizResult{}, err
	}
	return QuizResult{Questions: out.value, Attempts: out.attempts, Validation: out.result}, nil
}

type loop[T any] struct {
	kind        string
	prompt      prompts.PromptName
	in          prompts.Input
	maxAttempts int
	baseTemp    float64
	parse       func(string) (T, error)
	validate    func(T) validation.Result
}

type outcome[T any] struct {
	value    T
	attempts int
	result   validation.Result
}

func run[T any](ctx context.Context, g *Generator, l loop[T]) (outcome[T], error) {
	var zero outcome[T]
	if g.chat == nil {
		return zero, generr.Config("", errors.New("generator has no chat backend"))
	}
	p, err := g.catalog.Build(l.prompt, l.in)
	if err != nil {
		return zero, generr.Config("", err)
	}

	ctx, span := observability.Tracer("generator").Start(ctx, "generator."+l.kind)
	defer span.End()
	span.SetAttributes(
		attribute.String("topic", l.in.Topic),
		attribute.Int("grade", l.in.GradeLevel),
		attribute.String("band", l.in.Band),
		attribute.Int("max_attempts", l.maxAttempts),
	)

	// owned by this call; never shared across requests
	messages := []engine.Message{
		{Role: engine.RoleSystem, Content: p.System},
		{Role: engine.RoleUser, Content: p.User},
	}

	var last outcome[T]
	var lastContent string
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		temp := l.baseTemp + g.opts.TempStep*float64(attempt)
		req := engine.ChatRequest{
			Messages:    append([]engine.Message(nil), messages...),
			Model:       g.opts.Model,
			Temperature: temp,
			MaxTokens:   g.opts.MaxTokens,
		}
		if p.Schema != nil {
			req.ResponseFormat = engine.SchemaFormat(p.SchemaName, p.Schema)
		}

		start := time.Now()
		resp, err := g.chat.Chat(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "backend error")
			g.log.Warn("generation backend failed", "kind", l.kind, "attempt", attempt, "error", err)
			return zero, err
		}
		content := resp.Content()
		lastContent = content

		var res validation.Result
		value, perr := l.parse(content)
		if perr != nil {
			if attempt == l.maxAttempts {
				span.RecordError(perr)
				span.SetStatus(codes.Error, "unparsable response")
				g.opts.Metrics.ObserveAttempts(l.kind, attempt, false)
				return zero, generr.Parse("", l.kind, perr)
			}
			res = validation.Result{Issues: []string{fmt.Sprintf("Response could not be parsed as JSON: %v", perr)}}
		} else {
			res = l.validate(value)
			last = outcome[T]{value: value, attempts: attempt, result: res}
		}

		g.log.Debug("generation attempt",
			"kind", l.kind,
			"attempt", attempt,
			"temperature", temp,
			"valid", res.IsValid,
			"issues", len(res.Issues),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if res.IsValid {
			span.SetAttributes(attribute.Int("attempts", attempt), attribute.Bool("valid", true))
			g.opts.Metrics.ObserveAttempts(l.kind, attempt, true)
			return outcome[T]{value: value, attempts: attempt, result: res}, nil
		}
		if attempt == l.maxAttempts {
			break
		}

		fix := l.in
		fix.Issues = res.Issues
		fix.Recommendations = res.Recommendations
		corrective, err := g.catalog.Build(prompts.PromptCorrective, fix)
		if err != nil {
			return zero, generr.Config("", err)
		}
		messages = append(messages,
			engine.Message{Role: engine.RoleAssistant, Content: content},
			engine.Message{Role: engine.RoleUser, Content: corrective.User},
		)
	}

	// The final attempt parsed (otherwise we returned above), so last holds it.
	last.attempts = l.maxAttempts
	span.SetAttributes(attribute.Int("attempts", l.maxAttempts), attribute.Bool("valid", false))
	g.opts.Metrics.ObserveAttempts(l.kind, l.maxAttempts, false)
	g.log.Warn("returning content with unresolved issues",
		"kind", l.kind,
		"attempts", l.maxAttempts,
		"issues", last.result.Issues,
	)
	observability.ReportUnresolvedIssues(ctx, g.log, g.opts.Metrics, l.kind, last.result.Issues, map[string]any{
		"topic":       l.in.Topic,
		"grade":       l.in.GradeLevel,
		"band":        l.in.Band,
		"content_len": len(lastContent),
	})
	return last, nil
}
