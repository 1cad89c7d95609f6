// Package openaiimage calls the OpenAI images API and returns raw image bytes.
package openaiimage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/gradecraft/internal/platform/generr"
)

const provider = "openai_image"

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Size    string
}

type Image struct {
	Bytes         []byte
	MimeType      string
	RevisedPrompt string
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	size       string
	httpClient *http.Client
}

func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, generr.Config(provider, generr.ErrMissingCredential)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, generr.Config(provider, errors.New("image model required"))
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		size:       strings.TrimSpace(cfg.Size),
		httpClient: httpClient,
	}, nil
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // b64_json|url
}

type generationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("images api status %d: %s", e.StatusCode, e.Body)
}

func (e *statusError) HTTPStatusCode() int { return e.StatusCode }

// Generate returns a single image for prompt. gpt-image models always return base64 and
// reject the response_format parameter.
func (c *Client) Generate(ctx context.Context, prompt string) (Image, error) {
	var out Image
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return out, errors.New("image prompt required")
	}
	req := generationRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   c.size,
	}
	if !strings.HasPrefix(strings.ToLower(c.model), "gpt-image-") {
		req.ResponseFormat = "b64_json"
	}

	var resp generationResponse
	if err := c.post(ctx, "/v1/images/generations", req, &resp); err != nil {
		return out, generr.Transport(provider, "generate", err)
	}
	if len(resp.Data) == 0 {
		return out, generr.Parse(provider, "generate", errors.New("no image returned"))
	}
	item := resp.Data[0]
	out.RevisedPrompt = strings.TrimSpace(item.RevisedPrompt)

	if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil || len(raw) == 0 {
			return out, generr.Parse(provider, "generate", fmt.Errorf("decode image base64: %w", err))
		}
		out.Bytes = raw
		out.MimeType = "image/png"
		return out, nil
	}
	if u := strings.TrimSpace(item.URL); u != "" {
		raw, ct, err := c.download(ctx, u)
		if err != nil {
			return out, generr.Transport(provider, "download", fmt.Errorf("download generated image: %w", err))
		}
		out.Bytes = raw
		out.MimeType = strings.TrimSpace(strings.Split(ct, ";")[0])
		if out.MimeType == "" {
			out.MimeType = "image/png"
		}
		return out, nil
	}
	return out, generr.Parse(provider, "generate", errors.New("image response missing b64_json and url"))
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	// signed blob URLs break when an unrelated Authorization header is attached
	if sameHost(c.baseURL, rawURL) {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &statusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, strings.TrimSpace(resp.Header.Get("Content-Type")), nil
}

func sameHost(baseURL, rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return false
	}
	b, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), b.Hostname())
}
