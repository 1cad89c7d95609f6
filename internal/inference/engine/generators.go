package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/platform/generr"
)

const (
	defaultQuizCount = 5
	contentTemp      = 0.7
	structuredTemp   = 0.3
)

// Generators implements the content operations of Backend on top of any Chatter.
// Backends embed it and point Chatter at themselves.
type Generators struct {
	Provider  string
	Chatter   Chatter
	Prompts   prompts.Catalog
	Model     string
	MaxTokens int
}

func (g Generators) Name() string { return g.Provider }

func (g Generators) GenerateLesson(ctx context.Context, req GenerationRequest) (string, error) {
	p, err := g.build(prompts.PromptLesson, prompts.NewInput(req.Topic, req.GradeLevel))
	if err != nil {
		return "", err
	}
	text, err := g.complete(ctx, "lesson", p, contentTemp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g Generators) GenerateQuiz(ctx context.Context, req GenerationRequest) ([]QuizQuestion, error) {
	in := prompts.NewInput(req.Topic, req.GradeLevel)
	in.QuestionCount = req.QuestionCount
	if in.QuestionCount <= 0 {
		in.QuestionCount = defaultQuizCount
	}
	p, err := g.build(prompts.PromptQuiz, in)
	if err != nil {
		return nil, err
	}
	text, err := g.complete(ctx, "quiz", p, structuredTemp)
	if err != nil {
		return nil, err
	}
	qs, err := ParseQuiz(text)
	if err != nil {
		return nil, generr.Parse(g.Provider, "quiz", err)
	}
	return qs, nil
}

func (g Generators) GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error) {
	in := prompts.NewInput(req.Topic, req.GradeLevel)
	in.Question = req.Question
	in.StudentAnswer = req.StudentAnswer
	in.CorrectAnswer = req.CorrectAnswer
	in.IsCorrect = req.IsCorrect
	p, err := g.build(prompts.PromptFeedback, in)
	if err != nil {
		return "", err
	}
	text, err := g.complete(ctx, "feedback", p, contentTemp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g Generators) GenerateKnowledgeGraph(ctx context.Context, req GenerationRequest) (KnowledgeGraph, error) {
	p, err := g.build(prompts.PromptKnowledgeGraph, prompts.NewInput(req.Topic, req.GradeLevel))
	if err != nil {
		return KnowledgeGraph{}, err
	}
	text, err := g.complete(ctx, "knowledge_graph", p, structuredTemp)
	if err != nil {
		return KnowledgeGraph{}, err
	}
	kg, err := ParseKnowledgeGraph(text)
	if err != nil {
		return KnowledgeGraph{}, generr.Parse(g.Provider, "knowledge_graph", err)
	}
	return kg, nil
}

func (g Generators) build(name prompts.PromptName, in prompts.Input) (prompts.Prompt, error) {
	catalog := g.Prompts
	if catalog == nil {
		catalog = prompts.Default()
	}
	p, err := catalog.Build(name, in)
	if err != nil {
		return prompts.Prompt{}, generr.Config(g.Provider, err)
	}
	return p, nil
}

func (g Generators) complete(ctx context.Context, op string, p prompts.Prompt, temp float64) (string, error) {
	if g.Chatter == nil {
		return "", generr.Config(g.Provider, errors.New("no chat implementation"))
	}
	req := ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: p.System},
			{Role: RoleUser, Content: p.User},
		},
		Model:       g.Model,
		Temperature: temp,
		MaxTokens:   g.MaxTokens,
	}
	if p.Schema != nil {
		req.ResponseFormat = SchemaFormat(p.SchemaName, p.Schema)
	}
	resp, err := g.Chatter.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	text := resp.Content()
	if strings.TrimSpace(text) == "" {
		return "", generr.Parse(g.Provider, op, errors.New("empty completion"))
	}
	return text, nil
}
