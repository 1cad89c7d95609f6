package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizQuestion_AcceptsWellFormed(t *testing.T) {
	doc := []byte(`{"text":"Is the sun hot?","options":["Yes","No","Maybe","I don't know"],"correctIndex":0,"explanation":"It is a star."}`)
	require.NoError(t, Validate(QuizQuestion(), doc))
}

func TestQuizQuestion_RejectsBadShape(t *testing.T) {
	cases := map[string]string{
		"three options": `{"text":"Q","options":["a","b","c"],"correctIndex":0,"explanation":""}`,
		"index high":    `{"text":"Q","options":["a","b","c","d"],"correctIndex":4,"explanation":""}`,
		"missing text":  `{"options":["a","b","c","d"],"correctIndex":1,"explanation":""}`,
	}
	for name, doc := range cases {
		assert.Error(t, Validate(QuizQuestion(), []byte(doc)), name)
	}
}

func TestQuiz_EnforcesCount(t *testing.T) {
	one := `{"text":"Q","options":["a","b","c","d"],"correctIndex":1,"explanation":"x"}`
	require.NoError(t, Validate(Quiz(1), []byte(`{"questions":[`+one+`]}`)))
	assert.Error(t, Validate(Quiz(2), []byte(`{"questions":[`+one+`]}`)))
	require.NoError(t, Validate(Quiz(0), []byte(`{"questions":[`+one+`,`+one+`]}`)))
}

func TestKnowledgeGraph(t *testing.T) {
	ok := `{"nodes":[{"id":"a","label":"Sun"},{"id":"b","label":"Plant"}],"edges":[{"source":"a","target":"b"}]}`
	require.NoError(t, Validate(KnowledgeGraph(), []byte(ok)))
	assert.Error(t, Validate(KnowledgeGraph(), []byte(`{"nodes":[]}`)))
}
