package engine

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict,omitempty"`
}

type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// SchemaFormat builds a {type: "json_schema"} response format.
func SchemaFormat(name string, schema map[string]any) *ResponseFormat {
	return &ResponseFormat{
		Type:       "json_schema",
		JSONSchema: &JSONSchema{Name: name, Schema: schema},
	}
}

type ChatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the first non-blank choice content.
func (r ChatResponse) Content() string {
	for _, c := range r.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content
		}
	}
	return ""
}

// NewChatResponse wraps a single assistant completion.
func NewChatResponse(content string, usage Usage) ChatResponse {
	return ChatResponse{
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: content}}},
		Usage:   usage,
	}
}

type GenerationRequest struct {
	Topic         string `json:"topic"`
	GradeLevel    int    `json:"gradeLevel"`
	QuestionCount int    `json:"questionCount,omitempty"`
}

type FeedbackRequest struct {
	Topic         string `json:"topic"`
	GradeLevel    int    `json:"gradeLevel"`
	Question      string `json:"question"`
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}

type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Backend is one interchangeable generation provider.
type Backend interface {
	Chatter
	Name() string
	GenerateLesson(ctx context.Context, req GenerationRequest) (string, error)
	GenerateQuiz(ctx context.Context, req GenerationRequest) ([]QuizQuestion, error)
	GenerateFeedback(ctx context.Context, req FeedbackRequest) (string, error)
	GenerateKnowledgeGraph(ctx context.Context, req GenerationRequest) (KnowledgeGraph, error)
}
