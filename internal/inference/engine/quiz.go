package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/gradecraft/internal/inference/schema"
)

const OptionCount = 4

type QuizQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Check enforces the structural invariants: four options and an in-range correctIndex.
func (q QuizQuestion) Check() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("question must have exactly %d options (got %d)", OptionCount, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("correctIndex %d out of range", q.CorrectIndex)
	}
	return nil
}

// ParseQuiz accepts a bare JSON array or a {"questions": [...]} object, optionally wrapped in
// markdown fences. Every item must match the quiz question schema.
func ParseQuiz(content string) ([]QuizQuestion, error) {
	clean := StripFences(content)
	if clean == "" {
		return nil, errors.New("empty quiz response")
	}

	var items []json.RawMessage
	if strings.HasPrefix(clean, "[") {
		if err := json.Unmarshal([]byte(clean), &items); err != nil {
			return nil, fmt.Errorf("invalid quiz json: %w", err)
		}
	} else {
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal([]byte(clean), &wrapper); err != nil {
			return nil, fmt.Errorf("invalid quiz json: %w", err)
		}
		items = wrapper.Questions
	}
	if len(items) == 0 {
		return nil, errors.New("quiz json has no questions")
	}

	out := make([]QuizQuestion, 0, len(items))
	for i, raw := range items {
		if err := schema.Validate(schema.QuizQuestion(), raw); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		var q QuizQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

// StripFences removes a surrounding ```lang ... ``` block and trims whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
