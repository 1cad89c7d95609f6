// Package schema holds the JSON schemas for structured generation outputs and validates
// model responses against them.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	QuizName           = "quiz_questions"
	KnowledgeGraphName = "knowledge_graph"
)

// QuizQuestion describes one question: exactly four options and a correctIndex in [0,3].
// explanation is optional.
func QuizQuestion() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "minLength": 1},
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 4,
				"maxItems": 4,
			},
			"correctIndex": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
			"explanation":  map[string]any{"type": "string"},
		},
		"required": []any{"text", "options", "correctIndex"},
	}
}

// Quiz wraps the question list in an object so it can be sent as a response_format schema.
func Quiz(count int) map[string]any {
	questions := map[string]any{
		"type":  "array",
		"items": QuizQuestion(),
	}
	if count > 0 {
		questions["minItems"] = count
		questions["maxItems"] = count
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           map[string]any{"questions": questions},
		"required":             []any{"questions"},
	}
}

func KnowledgeGraph() map[string]any {
	node := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"id":    map[string]any{"type": "string", "minLength": 1},
			"label": map[string]any{"type": "string"},
		},
		"required": []any{"id", "label"},
	}
	edge := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"source": map[string]any{"type": "string", "minLength": 1},
			"target": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"source", "target"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"nodes": map[string]any{"type": "array", "items": node},
			"edges": map[string]any{"type": "array", "items": edge},
		},
		"required": []any{"nodes", "edges"},
	}
}

// Validate checks a JSON document against a schema. The error lists every violation.
func Validate(schema map[string]any, doc []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
}
