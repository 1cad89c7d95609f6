package prompts

import (
	"fmt"
	"strings"

	"github.com/yungbote/gradecraft/internal/learning/policy"
)

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	Topic      string
	GradeLevel int
	// Derived from GradeLevel by NewInput.
	GradeLabel          string
	Band                string
	MaxWordsPerSentence int
	MaxTotalWords       int
	BannedCSV           string

	// Quiz
	QuestionCount int

	// Feedback
	Question      string
	StudentAnswer string
	CorrectAnswer string
	IsCorrect     bool

	// Illustration
	DiagramType string
	Description string
	Prompt      string

	// Corrective
	Issues          []string
	Recommendations []string
}

// NewInput fills the grade-derived fields from the policy table.
func NewInput(topic string, grade int) Input {
	p := policy.For(grade)
	return Input{
		Topic:               strings.TrimSpace(topic),
		GradeLevel:          grade,
		GradeLabel:          GradeLabel(grade),
		Band:                string(p.Band),
		MaxWordsPerSentence: p.MaxWordsPerSentence,
		MaxTotalWords:       p.MaxTotalWords,
		BannedCSV:           strings.Join(p.Banned(), ", "),
	}
}

func GradeLabel(grade int) string {
	if grade <= 0 {
		return "kindergarten"
	}
	return fmt.Sprintf("grade %d", grade)
}
