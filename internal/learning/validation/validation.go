// Package validation checks generated lessons and quizzes against the grade policy table.
// Failures are data: a Result with IsValid=false, never an error.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/policy"
	"github.com/yungbote/gradecraft/internal/learning/readability"
	"github.com/yungbote/gradecraft/internal/observability"
)

const (
	// readabilitySlack is how far above the student's grade a text may read.
	readabilitySlack = 1.5

	longSentenceFactor   = 1.5
	maxLongSentenceRatio = 0.2
	totalWordsFactor     = 1.2
)

type Result struct {
	IsValid          bool     `json:"isValid"`
	Issues           []string `json:"issues"`
	Recommendations  []string `json:"recommendations"`
	ReadabilityScore float64  `json:"readabilityScore"`
}

type Interface interface {
	ValidateLesson(text string, grade int) Result
	ValidateQuiz(questions []engine.QuizQuestion, grade int) Result
}

type Validator struct {
	metrics *observability.Metrics
}

// New returns a validator. m may be nil.
func New(m *observability.Metrics) *Validator {
	return &Validator{metrics: m}
}

// Default has no metrics attached.
var Default Interface = New(nil)

func (v *Validator) ValidateLesson(text string, grade int) Result {
	p := policy.For(grade)
	st := readability.Analyze(text)
	res := Result{ReadabilityScore: st.Grade}

	if strings.TrimSpace(text) == "" {
		res.Issues = append(res.Issues, "Lesson text is empty")
		return v.finish("lesson", p, res)
	}

	if limit := float64(grade) + readabilitySlack; st.Grade > limit {
		res.Issues = append(res.Issues, fmt.Sprintf("Readability grade %.1f exceeds target %.1f for this grade", st.Grade, limit))
		res.Recommendations = append(res.Recommendations, "Use shorter sentences and shorter words")
	}

	if st.Sentences > 0 {
		threshold := longSentenceFactor * float64(p.MaxWordsPerSentence)
		long := 0
		for _, n := range st.WordsPerSentence {
			if float64(n) > threshold {
				long++
			}
		}
		if ratio := float64(long) / float64(st.Sentences); ratio > maxLongSentenceRatio {
			msg := fmt.Sprintf("%d%% of sentences exceed %d words", int(ratio*100+0.5), int(threshold))
			if p.SoftLimits {
				res.Recommendations = append(res.Recommendations, msg+"; consider splitting them")
			} else {
				res.Issues = append(res.Issues, msg+" (limit is 20%)")
				res.Recommendations = append(res.Recommendations, fmt.Sprintf("Keep sentences to %d words or fewer", p.MaxWordsPerSentence))
			}
		}
	}

	for _, w := range p.FindBanned(text) {
		res.Issues = append(res.Issues, fmt.Sprintf("Contains banned word %q for grade band %s", w, p.Band))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Replace %q with simpler words", w))
	}

	if limit := int(totalWordsFactor * float64(p.MaxTotalWords)); st.Words > limit {
		if p.SoftLimits {
			res.Recommendations = append(res.Recommendations, fmt.Sprintf("Lesson has %d words; aim for about %d", st.Words, p.MaxTotalWords))
		} else {
			res.Issues = append(res.Issues, fmt.Sprintf("Lesson has %d words; limit is %d", st.Words, limit))
			res.Recommendations = append(res.Recommendations, fmt.Sprintf("Shorten the lesson to about %d words", p.MaxTotalWords))
		}
	}

	return v.finish("lesson", p, res)
}

func (v *Validator) ValidateQuiz(questions []engine.QuizQuestion, grade int) Result {
	p := policy.For(grade)
	res := Result{}
	if len(questions) == 0 {
		res.Issues = append(res.Issues, "Quiz has no questions")
		return v.finish("quiz", p, res)
	}

	texts := make([]string, 0, len(questions))
	for i, q := range questions {
		texts = append(texts, ensureTerminal(q.Text))
		issues, recs := checkQuestion(q, p)
		prefix := fmt.Sprintf("Q%d: ", i+1)
		for _, s := range issues {
			res.Issues = append(res.Issues, prefix+s)
		}
		for _, s := range recs {
			res.Recommendations = append(res.Recommendations, prefix+s)
		}
	}
	res.ReadabilityScore = readability.Grade(strings.Join(texts, " "))
	return v.finish("quiz", p, res)
}

func checkQuestion(q engine.QuizQuestion, p policy.Policy) (issues, recs []string) {
	if len(q.Options) != engine.OptionCount {
		issues = append(issues, fmt.Sprintf("Question must have exactly 4 options, got %d", len(q.Options)))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) || q.CorrectIndex >= engine.OptionCount {
		issues = append(issues, fmt.Sprintf("correctIndex %d out of range", q.CorrectIndex))
	}

	limit := p.MaxWordsPerSentence
	if n := readability.WordCount(q.Text); n > limit {
		if p.SoftLimits {
			recs = append(recs, fmt.Sprintf("Question has %d words; aim for %d or fewer", n, limit))
		} else {
			issues = append(issues, fmt.Sprintf("Question has %d words; limit is %d", n, limit))
			recs = append(recs, "Shorten the question")
		}
	}
	for i, opt := range q.Options {
		if n := readability.WordCount(opt); n > limit {
			if p.SoftLimits {
				recs = append(recs, fmt.Sprintf("Option %d has %d words; aim for %d or fewer", i+1, n, limit))
			} else {
				issues = append(issues, fmt.Sprintf("Option %d has %d words; limit is %d", i+1, n, limit))
			}
		}
	}

	if p.ScreensVocabulary() {
		all := q.Text + "\n" + strings.Join(q.Options, "\n")
		for _, w := range p.FindBanned(all) {
			issues = append(issues, fmt.Sprintf("Contains banned word %q for grade band %s", w, p.Band))
			recs = append(recs, fmt.Sprintf("Replace %q with simpler words", w))
		}
	}

	if p.Band == policy.BandK2 && len(q.Options) > 0 && !simpleOptions(q.Options) {
		issues = append(issues, "Options are not simple enough for K-2")
		recs = append(recs, "Use yes/no answers, numbers, or one or two words per option")
	}
	return issues, recs
}

// simpleOptions holds when the options offer a yes/no choice, are all numbers,
// or are all at most two words long.
func simpleOptions(opts []string) bool {
	var yes, no bool
	allDigits, allShort := true, true
	for _, o := range opts {
		norm := strings.ToLower(strings.TrimRight(strings.TrimSpace(o), ".!?"))
		switch norm {
		case "yes":
			yes = true
		case "no":
			no = true
		}
		if !isDigits(norm) {
			allDigits = false
		}
		if readability.WordCount(o) > 2 {
			allShort = false
		}
	}
	return (yes && no) || allDigits || allShort
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func ensureTerminal(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

func (v *Validator) finish(kind string, p policy.Policy, res Result) Result {
	res.IsValid = len(res.Issues) == 0
	v.metrics.IncValidation(kind, string(p.Band), res.IsValid)
	return res
}
