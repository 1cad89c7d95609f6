package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestChat_SendsOpenAIShape(t *testing.T) {
	cfg := config.BackendConfig{BaseURL: "http://upstream", APIKey: "sk-test", Model: "gpt-test", Timeout: 2 * time.Second}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path=%s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth=%q", got)
		}
		var in map[string]any
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in["model"] != "gpt-test" {
			t.Fatalf("model=%v", in["model"])
		}
		if in["temperature"] != 0.7 {
			t.Fatalf("temperature=%v", in["temperature"])
		}
		rf, ok := in["response_format"].(map[string]any)
		if !ok || rf["type"] != "json_schema" {
			t.Fatalf("response_format=%v", in["response_format"])
		}
		if _, ok := in["guided_json"]; ok {
			t.Fatalf("openai must not receive guided_json")
		}
		return jsonResponse(http.StatusOK, completion(`{"ok":true}`)), nil
	})}

	e, err := New(cfg, Options{Provider: config.ProviderOpenAI, HTTPClient: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := e.Chat(context.Background(), engine.ChatRequest{
		Messages:       []engine.Message{{Role: engine.RoleUser, Content: "hi"}},
		Temperature:    0.7,
		ResponseFormat: engine.SchemaFormat("x", map[string]any{"type": "object"}),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content() != `{"ok":true}` {
		t.Fatalf("content=%q", resp.Content())
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("usage=%+v", resp.Usage)
	}
}

func TestChat_LocalUsesGuidedJSON(t *testing.T) {
	cfg := config.BackendConfig{BaseURL: "http://vllm:8000", Model: "llama", JSONSchema: config.JSONSchemaConfig{Mode: "auto"}}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "" {
			t.Fatalf("no key configured, no auth header expected")
		}
		var in map[string]any
		_ = json.NewDecoder(req.Body).Decode(&in)
		if _, ok := in["guided_json"]; !ok {
			t.Fatalf("guided_json missing: %v", in)
		}
		rf := in["response_format"].(map[string]any)
		if rf["type"] != "json_object" {
			t.Fatalf("response_format=%v", rf)
		}
		return jsonResponse(http.StatusOK, completion("[]")), nil
	})}
	e, err := New(cfg, Options{Provider: config.ProviderLocal, HTTPClient: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = e.Chat(context.Background(), engine.ChatRequest{
		Messages:       []engine.Message{{Role: engine.RoleUser, Content: "hi"}},
		ResponseFormat: engine.SchemaFormat("x", map[string]any{"type": "array"}),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestChat_RetriesServerErrors(t *testing.T) {
	var calls int32
	cfg := config.BackendConfig{BaseURL: "http://upstream", MaxRetries: 1, Timeout: time.Second}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &http.Response{StatusCode: http.StatusServiceUnavailable, Body: io.NopCloser(strings.NewReader("busy"))}, nil
		}
		return jsonResponse(http.StatusOK, completion("hello")), nil
	})}
	e, _ := New(cfg, Options{HTTPClient: client})
	resp, err := e.Chat(context.Background(), engine.ChatRequest{Messages: []engine.Message{{Role: engine.RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content() != "hello" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("content=%q calls=%d", resp.Content(), calls)
	}
}

func TestChat_ClientErrorIsTransportAndNotRetried(t *testing.T) {
	var calls int32
	cfg := config.BackendConfig{BaseURL: "http://upstream", MaxRetries: 3}
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader("bad"))}, nil
	})}
	e, _ := New(cfg, Options{HTTPClient: client})
	_, err := e.Chat(context.Background(), engine.ChatRequest{Messages: []engine.Message{{Role: engine.RoleUser, Content: "hi"}}})
	if !generr.IsKind(err, generr.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(config.BackendConfig{}, Options{}); !generr.IsKind(err, generr.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestGenerateLesson_UsesChat(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, completion("  Plants drink water.  ")), nil
	})}
	e, _ := New(config.BackendConfig{BaseURL: "http://upstream"}, Options{HTTPClient: client})
	text, err := e.GenerateLesson(context.Background(), engine.GenerationRequest{Topic: "plants", GradeLevel: 1})
	if err != nil {
		t.Fatalf("GenerateLesson: %v", err)
	}
	if text != "Plants drink water." {
		t.Fatalf("text=%q", text)
	}
	if e.Name() != config.ProviderOpenAI {
		t.Fatalf("name=%q", e.Name())
	}
}

func TestChat_RecordsUpstreamNotDispatch(t *testing.T) {
	m := observability.NewMetrics()
	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, completion("hi")), nil
	})}
	e, err := New(config.BackendConfig{BaseURL: "http://upstream", APIKey: "k"}, Options{HTTPClient: client, Metrics: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Chat(context.Background(), engine.ChatRequest{Messages: []engine.Message{{Role: engine.RoleUser, Content: "x"}}}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "gc_upstream_request_total"); err != nil || n != 1 {
		t.Fatalf("upstream series=%d err=%v", n, err)
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "gc_backend_dispatch_total"); err != nil || n != 0 {
		t.Fatalf("dispatch series=%d err=%v", n, err)
	}
}
