package prompts

import (
	"github.com/yungbote/gradecraft/internal/inference/schema"
	"github.com/yungbote/gradecraft/internal/platform/promptstyle"
)

func registerBuiltins(r *Registry) {
	r.RegisterSpec(Spec{
		Name:       PromptLesson,
		Version:    1,
		Mode:       promptstyle.ModeText,
		Validators: []Validator{requireTopic},
		System: `
You are a patient teacher writing a short lesson for a student in {{.GradeLabel}} (band {{.Band}}).
Rules:
- Keep sentences to {{.MaxWordsPerSentence}} words or fewer.
- Keep the whole lesson under {{.MaxTotalWords}} words.
- Use everyday words a child in {{.GradeLabel}} knows.
{{- if .BannedCSV}}
- Never use these words: {{.BannedCSV}}.
{{- end}}
- Write plain paragraphs. No lists, no headings, no markdown.`,
		User: `Write a lesson about "{{.Topic}}".`,
	})

	r.RegisterSpec(Spec{
		Name:       PromptQuiz,
		Version:    1,
		Mode:       promptstyle.ModeJSON,
		SchemaName: schema.QuizName,
		Schema:     func(in Input) map[string]any { return schema.Quiz(in.QuestionCount) },
		Validators: []Validator{requireTopic},
		System: `
You write multiple-choice quiz questions for a student in {{.GradeLabel}} (band {{.Band}}).
Rules:
- Every question and every option has at most {{.MaxWordsPerSentence}} words.
- Every question has exactly 4 options and one correct answer; correctIndex is 0-3.
{{- if eq .Band "K-2"}}
- Answers must be very simple: yes/no, a number, or one or two words.
{{- end}}
{{- if .BannedCSV}}
- Never use these words: {{.BannedCSV}}.
{{- end}}
Respond with {"questions":[{"text":"...","options":["...","...","...","..."],"correctIndex":0,"explanation":"..."}]}.`,
		User: `Write {{.QuestionCount}} quiz questions about "{{.Topic}}".`,
	})

	r.RegisterSpec(Spec{
		Name:    PromptFeedback,
		Version: 1,
		Mode:    promptstyle.ModeText,
		System: `
You give short, warm feedback to a student in {{.GradeLabel}}.
Use at most three sentences of {{.MaxWordsPerSentence}} words or fewer.
{{- if .BannedCSV}}
Never use these words: {{.BannedCSV}}.
{{- end}}`,
		User: `
Topic: {{.Topic}}
Question: {{.Question}}
Student answer: {{.StudentAnswer}}
Correct answer: {{.CorrectAnswer}}
{{if .IsCorrect}}The student was right. Praise the effort and add one fun fact.{{else}}The student was not right. Encourage them and explain the correct answer simply.{{end}}`,
	})

	r.RegisterSpec(Spec{
		Name:       PromptKnowledgeGraph,
		Version:    1,
		Mode:       promptstyle.ModeJSON,
		SchemaName: schema.KnowledgeGraphName,
		Schema:     func(Input) map[string]any { return schema.KnowledgeGraph() },
		Validators: []Validator{requireTopic},
		System: `
You map the key ideas of a topic for a student in {{.GradeLabel}}.
Return 4 to 8 nodes with short, kid-friendly labels and edges that connect related ideas.
Every edge source and target must be the id of a node.
Respond with {"nodes":[{"id":"...","label":"..."}],"edges":[{"source":"...","target":"..."}]}.`,
		User: `Build a knowledge graph for "{{.Topic}}".`,
	})

	r.RegisterSpec(Spec{
		Name:       PromptDiagramSVG,
		Version:    1,
		Mode:       promptstyle.ModeSVG,
		Validators: []Validator{requireTopic},
		System: `
You draw clear educational diagrams as SVG for a student in {{.GradeLabel}}.
Use a 800x600 viewBox, bright friendly colors, large readable labels of one or two words.
Allowed elements: svg, g, path, circle, ellipse, rect, line, polyline, polygon, text, tspan, defs, linearGradient, radialGradient, stop, marker, use, clipPath, title, desc.`,
		User: `
Draw a {{if .DiagramType}}{{.DiagramType}}{{else}}concept{{end}} diagram about "{{.Topic}}".
{{- if .Description}}
Details: {{.Description}}
{{- end}}`,
	})

	r.RegisterSpec(Spec{
		Name:       PromptImageSVG,
		Version:    1,
		Mode:       promptstyle.ModeSVG,
		Validators: []Validator{requireTopic},
		System: `
You draw simple, cheerful illustrations as SVG for a student in {{.GradeLabel}}.
Use a 800x600 viewBox, flat shapes, soft colors and no more than a few words of text.`,
		User: `
Illustrate "{{.Topic}}".
{{- if .Description}}
Details: {{.Description}}
{{- end}}`,
	})

	r.RegisterSpec(Spec{
		Name:       PromptImage,
		Version:    1,
		Validators: []Validator{requireTopic},
		System:     `Image prompt`,
		User: `
A friendly, colorful educational illustration for {{.GradeLabel}} students: {{.Topic}}.
{{- if .Description}} {{.Description}}.{{end}}
Flat cartoon style, simple shapes, no text, no scary elements.`,
	})

	r.RegisterSpec(Spec{
		Name:    PromptCorrective,
		Version: 1,
		System:  `Corrective`,
		User: `
Your last answer did not fit a student in {{.GradeLabel}}. Fix these problems:
{{bullets .Issues}}
{{- if .Recommendations}}
Suggestions:
{{bullets .Recommendations}}
{{- end}}
Rewrite the whole answer, keeping the same format.`,
	})
}
