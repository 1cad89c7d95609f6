package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"env":                                {"LOG_MODE"},
	"provider":                           {"GRADECRAFT_PROVIDER", "AI_PROVIDER"},
	"default_provider":                   {"GRADECRAFT_DEFAULT_PROVIDER"},
	"experimental_enabled":               {"GRADECRAFT_EXPERIMENTAL_ENABLED"},
	"fallback_enabled":                   {"GRADECRAFT_FALLBACK_ENABLED"},
	"openai.api_key":                     {"OPENAI_API_KEY"},
	"openai.model":                       {"OPENAI_MODEL"},
	"openai.base_url":                    {"OPENAI_BASE_URL"},
	"openai.timeout":                     {"OPENAI_TIMEOUT"},
	"gemini.api_key":                     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"gemini.model":                       {"GEMINI_MODEL"},
	"gemini.timeout":                     {"GEMINI_TIMEOUT"},
	"local.base_url":                     {"LOCAL_LLM_BASE_URL"},
	"local.api_key":                      {"LOCAL_LLM_API_KEY"},
	"local.model":                        {"LOCAL_LLM_MODEL"},
	"local.timeout":                      {"LOCAL_LLM_TIMEOUT"},
	"local.json_schema.mode":             {"LOCAL_LLM_JSON_SCHEMA_MODE"},
	"images.hosted_enabled":              {"GRADECRAFT_IMAGES_HOSTED_ENABLED"},
	"images.hosted_model":                {"OPENAI_IMAGE_MODEL"},
	"images.llm_svg_enabled":             {"GRADECRAFT_IMAGES_SVG_ENABLED"},
	"images.external_enabled":            {"GRADECRAFT_IMAGES_EXTERNAL_ENABLED"},
	"images.external_model":              {"IMAGEN_MODEL"},
	"images.programmatic_enabled":        {"GRADECRAFT_IMAGES_PROGRAMMATIC_ENABLED"},
	"images.font_path":                   {"GRADECRAFT_FONT_PATH"},
	"generation.lesson_max_attempts":     {"GRADECRAFT_LESSON_MAX_ATTEMPTS"},
	"generation.quiz_max_attempts":       {"GRADECRAFT_QUIZ_MAX_ATTEMPTS"},
	"generation.lesson_base_temperature": {"GRADECRAFT_LESSON_BASE_TEMPERATURE"},
	"generation.quiz_base_temperature":   {"GRADECRAFT_QUIZ_BASE_TEMPERATURE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("default_provider", ProviderOpenAI)
	v.SetDefault("experimental_enabled", false)
	v.SetDefault("fallback_enabled", true)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.max_retries", 2)
	v.SetDefault("openai.json_schema.mode", "response_format")

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", 60*time.Second)
	v.SetDefault("gemini.max_tokens", 2000)

	v.SetDefault("local.model", "llama-3.1-8b-instruct")
	v.SetDefault("local.timeout", 120*time.Second)
	v.SetDefault("local.max_tokens", 2000)
	v.SetDefault("local.max_retries", 1)
	v.SetDefault("local.json_schema.mode", "auto")

	v.SetDefault("mock.model", "mock-1")

	v.SetDefault("images.hosted_enabled", true)
	v.SetDefault("images.hosted_model", "gpt-image-1")
	v.SetDefault("images.hosted_size", "1024x1024")
	v.SetDefault("images.hosted_timeout", 60*time.Second)
	v.SetDefault("images.llm_svg_enabled", true)
	v.SetDefault("images.llm_svg_timeout", 45*time.Second)
	v.SetDefault("images.external_enabled", true)
	v.SetDefault("images.external_model", "imagen-3.0-generate-002")
	v.SetDefault("images.external_timeout", 60*time.Second)
	v.SetDefault("images.programmatic_enabled", true)

	v.SetDefault("generation.lesson_max_attempts", 2)
	v.SetDefault("generation.quiz_max_attempts", 3)
	v.SetDefault("generation.lesson_base_temperature", 0.6)
	v.SetDefault("generation.quiz_base_temperature", 0.4)
	v.SetDefault("generation.temperature_step", 0.1)
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *ProviderConfig {
	v := viper.New()
	setDefaults(v)
	var cfg ProviderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	normalize(&cfg)
	return &cfg
}

// Load reads .env (best effort), an optional config file, then environment overrides.
// Provider selection problems are left to the router; only malformed settings fail here.
func Load() (*ProviderConfig, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path := configPath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg ProviderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	path := strings.TrimSpace(os.Getenv("GRADECRAFT_ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv("GRADECRAFT_CONFIG")); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"gradecraft.yaml", "gradecraft.yml", "gradecraft.json"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func normalize(cfg *ProviderConfig) {
	cfg.Env = strings.TrimSpace(cfg.Env)
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = ProviderOpenAI
	}
	if cfg.Provider == "" {
		cfg.Provider = cfg.DefaultProvider
	}
	for _, bc := range []*BackendConfig{&cfg.OpenAI, &cfg.Gemini, &cfg.Local, &cfg.Mock} {
		bc.Model = strings.TrimSpace(bc.Model)
		bc.APIKey = strings.TrimSpace(bc.APIKey)
		bc.BaseURL = strings.TrimRight(strings.TrimSpace(bc.BaseURL), "/")
		bc.JSONSchema.Mode = strings.ToLower(strings.TrimSpace(bc.JSONSchema.Mode))
		if bc.JSONSchema.Mode == "" {
			bc.JSONSchema.Mode = "auto"
		}
	}
	if cfg.Generation.TempStep <= 0 {
		cfg.Generation.TempStep = 0.1
	}
}

func validate(cfg *ProviderConfig) error {
	if !KnownProvider(cfg.DefaultProvider) {
		return fmt.Errorf("unknown default_provider %q", cfg.DefaultProvider)
	}
	if Restricted(cfg.DefaultProvider) {
		return fmt.Errorf("default_provider %q is restricted", cfg.DefaultProvider)
	}
	for name, bc := range map[string]BackendConfig{
		ProviderOpenAI: cfg.OpenAI,
		ProviderGemini: cfg.Gemini,
		ProviderLocal:  cfg.Local,
	} {
		if bc.Timeout < 0 {
			return fmt.Errorf("%s.timeout must not be negative", name)
		}
		if bc.MaxRetries < 0 {
			return fmt.Errorf("%s.max_retries must not be negative", name)
		}
		switch bc.JSONSchema.Mode {
		case "auto", "none", "response_format", "guided_json":
		default:
			return fmt.Errorf("%s.json_schema.mode=%q is invalid", name, bc.JSONSchema.Mode)
		}
	}
	g := cfg.Generation
	if g.LessonMaxAttempts < 1 || g.QuizMaxAttempts < 1 {
		return errors.New("generation max attempts must be at least 1")
	}
	if g.LessonBaseTemp < 0 || g.QuizBaseTemp < 0 {
		return errors.New("generation base temperatures must not be negative")
	}
	return nil
}
