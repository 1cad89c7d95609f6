package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/gradecraft/internal/platform/generr"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
	ProviderMock   = "mock"
)

// KnownProvider reports whether id names a backend this build can construct.
func KnownProvider(id string) bool {
	switch id {
	case ProviderOpenAI, ProviderGemini, ProviderLocal, ProviderMock:
		return true
	}
	return false
}

// Restricted providers are only selectable when ExperimentalEnabled is set.
func Restricted(id string) bool {
	return id == ProviderLocal
}

type JSONSchemaConfig struct {
	// Mode controls how structured output is requested from an OpenAI-compatible engine.
	// - "none": ignore schema hints
	// - "response_format": send the standard response_format json_schema block
	// - "guided_json": send vLLM-style guided decoding fields
	// - "auto": response_format, plus guided_json for restricted engines
	Mode string `mapstructure:"mode"`
}

type BackendConfig struct {
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
	// MaxRetries bounds transport-level retries on 408/429/5xx against the same backend.
	MaxRetries int              `mapstructure:"max_retries"`
	JSONSchema JSONSchemaConfig `mapstructure:"json_schema"`
}

type ImageConfig struct {
	HostedEnabled       bool          `mapstructure:"hosted_enabled"`
	HostedModel         string        `mapstructure:"hosted_model"`
	HostedSize          string        `mapstructure:"hosted_size"`
	HostedTimeout       time.Duration `mapstructure:"hosted_timeout"`
	LLMSVGEnabled       bool          `mapstructure:"llm_svg_enabled"`
	LLMSVGTimeout       time.Duration `mapstructure:"llm_svg_timeout"`
	ExternalEnabled     bool          `mapstructure:"external_enabled"`
	ExternalModel       string        `mapstructure:"external_model"`
	ExternalTimeout     time.Duration `mapstructure:"external_timeout"`
	ProgrammaticEnabled bool          `mapstructure:"programmatic_enabled"`
	// FontPath is an optional TTF used by raster cards; empty means the built-in bitmap face.
	FontPath string `mapstructure:"font_path"`
}

type GenerationConfig struct {
	LessonMaxAttempts int     `mapstructure:"lesson_max_attempts"`
	QuizMaxAttempts   int     `mapstructure:"quiz_max_attempts"`
	LessonBaseTemp    float64 `mapstructure:"lesson_base_temperature"`
	QuizBaseTemp      float64 `mapstructure:"quiz_base_temperature"`
	TempStep          float64 `mapstructure:"temperature_step"`
}

// ProviderConfig is built once by Load and treated as read-only afterwards.
type ProviderConfig struct {
	Env string `mapstructure:"env"`

	// Provider is the requested primary backend; DefaultProvider is the downgrade and fallback target.
	Provider            string `mapstructure:"provider"`
	DefaultProvider     string `mapstructure:"default_provider"`
	ExperimentalEnabled bool   `mapstructure:"experimental_enabled"`
	FallbackEnabled     bool   `mapstructure:"fallback_enabled"`

	OpenAI BackendConfig `mapstructure:"openai"`
	Gemini BackendConfig `mapstructure:"gemini"`
	Local  BackendConfig `mapstructure:"local"`
	Mock   BackendConfig `mapstructure:"mock"`

	Images     ImageConfig      `mapstructure:"images"`
	Generation GenerationConfig `mapstructure:"generation"`
}

// Backend returns the settings for a provider id.
func (c *ProviderConfig) Backend(id string) (BackendConfig, bool) {
	if c == nil {
		return BackendConfig{}, false
	}
	switch id {
	case ProviderOpenAI:
		return c.OpenAI, true
	case ProviderGemini:
		return c.Gemini, true
	case ProviderLocal:
		return c.Local, true
	case ProviderMock:
		return c.Mock, true
	}
	return BackendConfig{}, false
}

// RequireCredential fails when a backend that needs an API key (or endpoint) lacks one.
func (c *ProviderConfig) RequireCredential(id string) error {
	bc, ok := c.Backend(id)
	if !ok {
		return generr.Config(id, fmt.Errorf("unknown provider %q", id))
	}
	switch id {
	case ProviderOpenAI, ProviderGemini:
		if strings.TrimSpace(bc.APIKey) == "" {
			return generr.Config(id, generr.ErrMissingCredential)
		}
	case ProviderLocal:
		if strings.TrimSpace(bc.BaseURL) == "" {
			return generr.Config(id, fmt.Errorf("%w: base_url", generr.ErrMissingCredential))
		}
	}
	return nil
}
