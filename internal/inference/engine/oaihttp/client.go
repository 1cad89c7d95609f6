// Package oaihttp is a chat-completions client for OpenAI and OpenAI-compatible servers
// (vLLM, Ollama and similar self-hosted engines).
package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
	"github.com/yungbote/gradecraft/internal/platform/httpx"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	maxRetryWait        = 10 * time.Second
)

type Options struct {
	Provider   string
	Prompts    prompts.Catalog
	HTTPClient *http.Client
	Log        *logger.Logger
	Metrics    *observability.Metrics
}

type Engine struct {
	engine.Generators

	provider       string
	baseURL        string
	apiKey         string
	model          string
	timeout        time.Duration
	maxRetries     int
	jsonSchemaMode string

	httpClient *http.Client
	log        *logger.Logger
	metrics    *observability.Metrics
}

func New(cfg config.BackendConfig, opts Options) (*Engine, error) {
	provider := strings.TrimSpace(opts.Provider)
	if provider == "" {
		provider = config.ProviderOpenAI
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, generr.Config(provider, errors.New("base_url required"))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.JSONSchema.Mode))
	if mode == "" || mode == "auto" {
		mode = "response_format"
		if config.Restricted(provider) {
			mode = "guided_json"
		}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(defaultTransport())}
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	e := &Engine{
		provider:       provider,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		model:          strings.TrimSpace(cfg.Model),
		timeout:        timeout,
		maxRetries:     maxRetries,
		jsonSchemaMode: mode,
		httpClient:     httpClient,
		log:            log.With("backend", provider),
		metrics:        opts.Metrics,
	}
	e.Generators = engine.Generators{
		Provider:  provider,
		Chatter:   e,
		Prompts:   opts.Prompts,
		Model:     e.model,
		MaxTokens: cfg.MaxTokens,
	}
	return e, nil
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []engine.Message       `json:"messages"`
	Temperature    *float64               `json:"temperature,omitempty"`
	MaxTokens      int                    `json:"max_tokens,omitempty"`
	ResponseFormat *engine.ResponseFormat `json:"response_format,omitempty"`

	// vLLM-style guided decoding.
	GuidedJSON any `json:"guided_json,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Usage engine.Usage `json:"usage"`
}

func (e *Engine) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	body := e.buildChatRequest(req)
	if len(body.Messages) == 0 {
		return engine.ChatResponse{}, generr.Config(e.provider, errors.New("no messages"))
	}

	start := time.Now()
	var resp chatCompletionResponse
	err := e.doJSON(ctx, chatCompletionsPath, body, &resp)
	e.metrics.ObserveUpstream(e.provider, "chat_completions", err, time.Since(start))
	if err != nil {
		return engine.ChatResponse{}, generr.Transport(e.provider, "chat", err)
	}
	e.metrics.AddTokens(e.provider, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	out := engine.ChatResponse{Usage: resp.Usage}
	for _, c := range resp.Choices {
		content := c.Message.Content
		if content == "" {
			content = c.Text
		}
		role := c.Message.Role
		if role == "" {
			role = engine.RoleAssistant
		}
		out.Choices = append(out.Choices, engine.Choice{Message: engine.Message{Role: role, Content: content}})
	}
	return out, nil
}

func (e *Engine) buildChatRequest(req engine.ChatRequest) chatCompletionRequest {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = e.model
	}
	out := chatCompletionRequest{
		Model:     model,
		Messages:  toChatMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	rf := req.ResponseFormat
	if rf == nil || rf.JSONSchema == nil {
		out.ResponseFormat = rf
		return out
	}
	switch e.jsonSchemaMode {
	case "none":
	case "guided_json":
		out.ResponseFormat = &engine.ResponseFormat{Type: "json_object"}
		out.GuidedJSON = rf.JSONSchema.Schema
	default:
		out.ResponseFormat = rf
	}
	return out
}

func toChatMessages(messages []engine.Message) []engine.Message {
	out := make([]engine.Message, 0, len(messages))
	for _, m := range messages {
		role := strings.TrimSpace(m.Role)
		if role == "" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, engine.Message{Role: role, Content: m.Content})
	}
	return out
}

// ---------------- HTTP helpers ----------------

func (e *Engine) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// doJSON posts body and decodes the reply, retrying 408/429/5xx and timeouts with jittered
// exponential backoff (Retry-After wins when present).
func (e *Engine) doJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := e.doOnce(ctx, path, payload, out)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt >= e.maxRetries {
			return err
		}
		wait := backoff
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			wait = min(se.RetryAfter, maxRetryWait)
		}
		sleepFor := httpx.JitterSleep(wait)
		e.log.Warn("chat request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", e.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (e *Engine) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	e.setHeaders(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return newStatusError(resp, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
