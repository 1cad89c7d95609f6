package mock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/gradecraft/internal/inference/engine"
)

func TestMock_QuizMatchesRequestedCount(t *testing.T) {
	e := New(nil)
	qs, err := e.GenerateQuiz(context.Background(), engine.GenerationRequest{Topic: "rain", GradeLevel: 1, QuestionCount: 4})
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if len(qs) != 4 {
		t.Fatalf("got %d", len(qs))
	}
	for _, q := range qs {
		if err := q.Check(); err != nil {
			t.Fatalf("check: %v", err)
		}
		if !strings.Contains(q.Text, "rain") {
			t.Fatalf("text=%q", q.Text)
		}
	}
}

func TestMock_Deterministic(t *testing.T) {
	e := New(nil)
	req := engine.GenerationRequest{Topic: "frogs", GradeLevel: 2, QuestionCount: 2}
	a, _ := e.GenerateQuiz(context.Background(), req)
	b, _ := e.GenerateQuiz(context.Background(), req)
	for i := range a {
		if a[i].CorrectIndex != b[i].CorrectIndex || a[i].Text != b[i].Text {
			t.Fatalf("not deterministic at %d", i)
		}
	}
}

func TestMock_GraphAndLesson(t *testing.T) {
	e := New(nil)
	g, err := e.GenerateKnowledgeGraph(context.Background(), engine.GenerationRequest{Topic: "moon", GradeLevel: 3})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if len(g.Nodes) != 4 || len(g.Edges) != 3 {
		t.Fatalf("graph=%+v", g)
	}
	text, err := e.GenerateLesson(context.Background(), engine.GenerationRequest{Topic: "moon", GradeLevel: 1})
	if err != nil || !strings.Contains(text, "moon") {
		t.Fatalf("lesson=%q err=%v", text, err)
	}
}

func TestMock_ErrIsReturned(t *testing.T) {
	boom := errors.New("boom")
	e := New(nil)
	e.Err = boom
	if _, err := e.Chat(context.Background(), engine.ChatRequest{}); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}
