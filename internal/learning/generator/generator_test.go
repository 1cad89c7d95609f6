package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/validation"
	"github.com/yungbote/gradecraft/internal/platform/generr"
)

type recordingChat struct {
	mu    sync.Mutex
	reqs  []engine.ChatRequest
	reply func(n int) (string, error)
}

func (c *recordingChat) Chat(_ context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	n := len(c.reqs)
	c.mu.Unlock()
	content, err := c.reply(n)
	if err != nil {
		return engine.ChatResponse{}, err
	}
	return engine.NewChatResponse(content, engine.Usage{}), nil
}

type failingValidator struct{}

func (failingValidator) ValidateLesson(string, int) validation.Result {
	return validation.Result{Issues: []string{"Readability grade 9.0 exceeds target 2.5"}, Recommendations: []string{"Use shorter words"}}
}

func (failingValidator) ValidateQuiz([]engine.QuizQuestion, int) validation.Result {
	return validation.Result{Issues: []string{"Q1: Options are not simple enough for K-2"}}
}

const quizJSON = `{"questions":[{"text":"Is the sun hot?","options":["Yes","No","Maybe","I don't know"],"correctIndex":0}]}`

func assertIncreasingTemps(t *testing.T, reqs []engine.ChatRequest) {
	t.Helper()
	for i := 1; i < len(reqs); i++ {
		if reqs[i].Temperature <= reqs[i-1].Temperature {
			t.Fatalf("temperature not increasing: %v then %v", reqs[i-1].Temperature, reqs[i].Temperature)
		}
	}
}

func TestGenerateLesson_AlwaysInvalidUsesEveryAttempt(t *testing.T) {
	chat := &recordingChat{reply: func(n int) (string, error) { return fmt.Sprintf("lesson draft %d", n), nil }}
	g := New(chat, failingValidator{}, nil, DefaultOptions(), nil)

	res, err := g.GenerateLesson(context.Background(), 1, "plants")
	if err != nil {
		t.Fatalf("GenerateLesson: %v", err)
	}
	if len(chat.reqs) != 2 {
		t.Fatalf("calls=%d, want 2", len(chat.reqs))
	}
	if res.Text != "lesson draft 2" || res.Attempts != 2 || res.Validation.IsValid {
		t.Fatalf("res=%+v", res)
	}
	assertIncreasingTemps(t, chat.reqs)

	second := chat.reqs[1].Messages
	if len(second) != 4 {
		t.Fatalf("second attempt messages=%d, want 4", len(second))
	}
	if second[2].Role != engine.RoleAssistant || second[2].Content != "lesson draft 1" {
		t.Fatalf("assistant turn=%+v", second[2])
	}
	if second[3].Role != engine.RoleUser || !strings.Contains(second[3].Content, "Readability grade 9.0") || !strings.Contains(second[3].Content, "Use shorter words") {
		t.Fatalf("corrective turn=%q", second[3].Content)
	}
}

func TestGenerateQuiz_AlwaysInvalidUsesEveryAttempt(t *testing.T) {
	chat := &recordingChat{reply: func(int) (string, error) { return quizJSON, nil }}
	g := New(chat, failingValidator{}, nil, DefaultOptions(), nil)

	res, err := g.GenerateQuiz(context.Background(), 0, "the sun", 1)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(chat.reqs) != 3 {
		t.Fatalf("calls=%d, want 3", len(chat.reqs))
	}
	if len(res.Questions) != 1 || res.Attempts != 3 {
		t.Fatalf("res=%+v", res)
	}
	assertIncreasingTemps(t, chat.reqs)
	if got := chat.reqs[0].Temperature; got < 0.49 || got > 0.51 {
		t.Fatalf("first quiz temperature=%v, want 0.5", got)
	}
	if chat.reqs[0].ResponseFormat == nil || chat.reqs[0].ResponseFormat.Type != "json_schema" {
		t.Fatalf("quiz request must carry a json schema response format")
	}
}

func TestGenerateQuiz_ValidFirstAttemptStops(t *testing.T) {
	chat := &recordingChat{reply: func(int) (string, error) { return "```json\n" + quizJSON + "\n```", nil }}
	g := New(chat, validation.Default, nil, DefaultOptions(), nil)

	res, err := g.GenerateQuiz(context.Background(), 0, "the sun", 1)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if len(chat.reqs) != 1 || res.Attempts != 1 || !res.Validation.IsValid {
		t.Fatalf("calls=%d res=%+v", len(chat.reqs), res)
	}
	if res.Questions[0].Options[3] != "I don't know" {
		t.Fatalf("questions=%+v", res.Questions)
	}
}

func TestGenerateQuiz_ParseFailureRetriesThenSucceeds(t *testing.T) {
	chat := &recordingChat{reply: func(n int) (string, error) {
		if n == 1 {
			return "not json at all", nil
		}
		return quizJSON, nil
	}}
	g := New(chat, validation.Default, nil, DefaultOptions(), nil)

	res, err := g.GenerateQuiz(context.Background(), 0, "the sun", 1)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if res.Attempts != 2 || len(chat.reqs) != 2 {
		t.Fatalf("attempts=%d calls=%d", res.Attempts, len(chat.reqs))
	}
	if !strings.Contains(chat.reqs[1].Messages[3].Content, "could not be parsed") {
		t.Fatalf("corrective=%q", chat.reqs[1].Messages[3].Content)
	}
}

func TestGenerateQuiz_ParseFailureOnLastAttemptIsFatal(t *testing.T) {
	chat := &recordingChat{reply: func(int) (string, error) { return "{broken", nil }}
	g := New(chat, validation.Default, nil, DefaultOptions(), nil)

	_, err := g.GenerateQuiz(context.Background(), 0, "the sun", 1)
	if !generr.IsKind(err, generr.KindParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if len(chat.reqs) != 3 {
		t.Fatalf("calls=%d", len(chat.reqs))
	}
}

func TestGenerate_BackendErrorAbortsImmediately(t *testing.T) {
	boom := generr.Transport("openai", "chat", errors.New("503"))
	chat := &recordingChat{reply: func(int) (string, error) { return "", boom }}
	g := New(chat, failingValidator{}, nil, DefaultOptions(), nil)

	if _, err := g.GenerateLesson(context.Background(), 2, "rocks"); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if len(chat.reqs) != 1 {
		t.Fatalf("calls=%d", len(chat.reqs))
	}
}

func TestGenerateLesson_ConcurrentCallsDoNotShareHistory(t *testing.T) {
	chat := &recordingChat{reply: func(int) (string, error) { return "draft", nil }}
	g := New(chat, failingValidator{}, nil, DefaultOptions(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = g.GenerateLesson(context.Background(), 1, fmt.Sprintf("topic-%d", i))
		}(i)
	}
	wg.Wait()

	for _, req := range chat.reqs {
		if len(req.Messages) != 2 && len(req.Messages) != 4 {
			t.Fatalf("unexpected history length %d", len(req.Messages))
		}
	}
}
