// Package mock is a deterministic backend for development and tests. It needs no credentials.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/inference/schema"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
)

type Engine struct {
	engine.Generators

	// Err, when set, is returned from every Chat call.
	Err error
}

func New(catalog prompts.Catalog) *Engine {
	e := &Engine{}
	e.Generators = engine.Generators{
		Provider: config.ProviderMock,
		Chatter:  e,
		Prompts:  catalog,
		Model:    "mock-1",
	}
	return e
}

func (e *Engine) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return engine.ChatResponse{}, err
	}
	if e.Err != nil {
		return engine.ChatResponse{}, e.Err
	}

	var system, user string
	for _, m := range req.Messages {
		switch m.Role {
		case engine.RoleSystem:
			system = m.Content
		case engine.RoleUser:
			// corrective turns come later; the topic lives in the first one
			if user == "" {
				user = m.Content
			}
		}
	}
	topic := quoted(user)
	if topic == "" {
		topic = "our world"
	}

	var content string
	switch {
	case req.ResponseFormat != nil && req.ResponseFormat.JSONSchema != nil && req.ResponseFormat.JSONSchema.Name == schema.QuizName:
		content = quizJSON(topic, countFromSchema(req.ResponseFormat.JSONSchema.Schema))
	case req.ResponseFormat != nil && req.ResponseFormat.JSONSchema != nil && req.ResponseFormat.JSONSchema.Name == schema.KnowledgeGraphName:
		content = graphJSON(topic)
	case strings.Contains(system, "<svg>"):
		content = svg(topic)
	case strings.Contains(user, "Student answer:"):
		content = "Good try. Let us look again. You can do it."
	default:
		content = lesson(topic)
	}
	words := len(strings.Fields(content))
	return engine.NewChatResponse(content, engine.Usage{
		PromptTokens:     len(strings.Fields(system + " " + user)),
		CompletionTokens: words,
		TotalTokens:      len(strings.Fields(system+" "+user)) + words,
	}), nil
}

func quoted(s string) string {
	i := strings.IndexByte(s, '"')
	if i < 0 {
		return ""
	}
	j := strings.IndexByte(s[i+1:], '"')
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(s[i+1 : i+1+j])
}

func countFromSchema(s map[string]any) int {
	props, _ := s["properties"].(map[string]any)
	qs, _ := props["questions"].(map[string]any)
	if n, ok := qs["minItems"].(int); ok && n > 0 {
		return n
	}
	return 3
}

func lesson(topic string) string {
	return fmt.Sprintf("We learn about %s. It is all around us. Look and see. Ask a friend. It is fun to learn.", topic)
}

func quizJSON(topic string, n int) string {
	type q = engine.QuizQuestion
	stems := []string{"Is %s fun?", "Can we see %s?", "Do you like %s?", "Is %s real?", "Can %s help?"}
	out := make([]q, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, q{
			Text:         fmt.Sprintf(stems[i%len(stems)], topic),
			Options:      []string{"Yes", "No", "Maybe", "Not sure"},
			CorrectIndex: seed(topic, i) % 2,
			Explanation:  "Think about what you learned.",
		})
	}
	b, _ := json.Marshal(map[string]any{"questions": out})
	return string(b)
}

func graphJSON(topic string) string {
	g := engine.KnowledgeGraph{
		Nodes: []engine.GraphNode{
			{ID: "topic", Label: topic},
			{ID: "what", Label: "What it is"},
			{ID: "where", Label: "Where we see it"},
			{ID: "why", Label: "Why it matters"},
		},
		Edges: []engine.GraphEdge{
			{Source: "topic", Target: "what"},
			{Source: "topic", Target: "where"},
			{Source: "topic", Target: "why"},
		},
	}
	b, _ := json.Marshal(g)
	return string(b)
}

func svg(topic string) string {
	hue := seed(topic, 0) % 360
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600"><rect width="800" height="600" fill="hsl(%d,70%%,92%%)"/><circle cx="400" cy="260" r="120" fill="hsl(%d,70%%,60%%)"/><text x="400" y="480" font-size="40" text-anchor="middle">%s</text></svg>`,
		hue, hue, escape(topic))
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func seed(s string, i int) int {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\n%d", s, i)))
	return int(binary.LittleEndian.Uint32(h[:4]) % 1_000_000)
}
