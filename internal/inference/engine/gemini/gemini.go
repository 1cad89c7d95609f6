// Package gemini adapts the Gemini API (google.golang.org/genai) to the engine.Backend contract.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/prompts"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
	"github.com/yungbote/gradecraft/internal/platform/httpx"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

type Options struct {
	Prompts    prompts.Catalog
	HTTPClient *http.Client
	Log        *logger.Logger
	Metrics    *observability.Metrics
}

type Engine struct {
	engine.Generators

	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	log        *logger.Logger
	metrics    *observability.Metrics
}

// NewClient builds a genai client for the Gemini API. BaseURL overrides the endpoint (tests, proxies).
func NewClient(ctx context.Context, cfg config.BackendConfig, httpClient *http.Client) (*genai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, generr.Config(config.ProviderGemini, generr.ErrMissingCredential)
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: u}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, generr.Config(config.ProviderGemini, fmt.Errorf("create genai client: %w", err))
	}
	return client, nil
}

func New(ctx context.Context, cfg config.BackendConfig, opts Options) (*Engine, error) {
	client, err := NewClient(ctx, cfg, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	e := &Engine{
		client:     client,
		model:      strings.TrimSpace(cfg.Model),
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		log:        log.With("backend", config.ProviderGemini),
		metrics:    opts.Metrics,
	}
	e.Generators = engine.Generators{
		Provider:  config.ProviderGemini,
		Chatter:   e,
		Prompts:   opts.Prompts,
		Model:     e.model,
		MaxTokens: cfg.MaxTokens,
	}
	return e, nil
}

// Chat maps system messages to the system instruction and assistant turns to the model role.
// A requested JSON schema is enforced through the JSON response MIME type plus an instruction.
func (e *Engine) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = e.model
	}
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case engine.RoleSystem:
			system = append(system, m.Content)
		case engine.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return engine.ChatResponse{}, generr.Config(config.ProviderGemini, errors.New("no messages"))
	}

	gc := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		gc.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if rf := req.ResponseFormat; rf != nil && rf.JSONSchema != nil {
		gc.ResponseMIMEType = "application/json"
		if b, err := json.Marshal(rf.JSONSchema.Schema); err == nil {
			system = append(system, "Return JSON matching this schema:\n"+string(b))
		}
	}
	if len(system) > 0 {
		gc.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	start := time.Now()
	resp, err := e.generate(ctx, model, contents, gc)
	e.metrics.ObserveUpstream(config.ProviderGemini, "generate_content", err, time.Since(start))
	if err != nil {
		return engine.ChatResponse{}, generr.Transport(config.ProviderGemini, "chat", err)
	}

	var usage engine.Usage
	if um := resp.UsageMetadata; um != nil {
		usage = engine.Usage{
			PromptTokens:     int(um.PromptTokenCount),
			CompletionTokens: int(um.CandidatesTokenCount),
			TotalTokens:      int(um.TotalTokenCount),
		}
	}
	e.metrics.AddTokens(config.ProviderGemini, usage.PromptTokens, usage.CompletionTokens)
	return engine.NewChatResponse(resp.Text(), usage), nil
}

func (e *Engine) generate(ctx context.Context, model string, contents []*genai.Content, gc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.client.Models.GenerateContent(callCtx, model, contents, gc)
		cancel()
		if err == nil {
			return resp, nil
		}
		err = classify(err)
		if !httpx.IsRetryableError(err) || attempt >= e.maxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(backoff)
		e.log.Warn("gemini request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

type statusError struct {
	code int
	err  error
}

func (s *statusError) Error() string       { return s.err.Error() }
func (s *statusError) Unwrap() error       { return s.err }
func (s *statusError) HTTPStatusCode() int { return s.code }

// classify attaches an HTTP status to genai API errors so retry helpers can read it.
func classify(err error) error {
	// genai returns APIError by value; a pointer may still appear when wrapped by callers.
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &statusError{code: apiErr.Code, err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code > 0 {
		return &statusError{code: apiErrPtr.Code, err: err}
	}
	s := err.Error()
	switch {
	case strings.Contains(s, "RESOURCE_EXHAUSTED"), strings.Contains(s, "429"):
		return &statusError{code: http.StatusTooManyRequests, err: err}
	case strings.Contains(s, "UNAVAILABLE"), strings.Contains(s, "503"):
		return &statusError{code: http.StatusServiceUnavailable, err: err}
	}
	return err
}
