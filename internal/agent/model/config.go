package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	errx "github.com/tripsmart/server/internal/core/error"
)

// Provider names a hosted inference backend.
type Provider string

const (
	ProviderGroq        Provider = "groq"
	ProviderHuggingFace Provider = "huggingface"
	ProviderOpenAI      Provider = "openai"
	ProviderGemini      Provider = "gemini"
)

// ProviderFallbackOrder is consulted when LLM_PROVIDER is empty.
var ProviderFallbackOrder = []Provider{ProviderGroq, ProviderHuggingFace, ProviderOpenAI, ProviderGemini}

// ================ Config ================
type GroqConfig struct {
	APIKey  string `envconfig:"GROQ_API_KEY"`
	Model   string `envconfig:"GROQ_MODEL" default:"llama-3.1-8b-instant"`
	BaseURL string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
}

type HuggingFaceConfig struct {
	APIKey string `envconfig:"HUGGINGFACE_API_KEY"`
	Model  string `envconfig:"HUGGINGFACE_MODEL" default:"HuggingFaceH4/zephyr-7b-beta"`
	URL    string `envconfig:"HUGGINGFACE_URL"`
}

type OpenAIConfig struct {
	APIKey  string `envconfig:"OPENAI_API_KEY"`
	Model   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	BaseURL string `envconfig:"OPENAI_BASE_URL"`
}

type GeminiConfig struct {
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	Model   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`
}

type GenerationConfig struct {
	Provider    string  `envconfig:"LLM_PROVIDER"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
}

type RetryConfig struct {
	MaxRetries     int           `envconfig:"LLM_MAX_RETRIES" default:"2"`
	InitialBackoff time.Duration `envconfig:"LLM_BACKOFF_INITIAL" default:"1s"`
	MaxBackoff     time.Duration `envconfig:"LLM_BACKOFF_MAX" default:"8s"`
	AttemptTimeout time.Duration `envconfig:"LLM_ATTEMPT_TIMEOUT" default:"60s"`
	CallTimeout    time.Duration `envconfig:"LLM_CALL_TIMEOUT" default:"150s"`
}

type PipelineConfig struct {
	PriorTextLimit int    `envconfig:"PIPELINE_PRIOR_TEXT_LIMIT" default:"12000"`
	PlanTTL        string `envconfig:"PLAN_TTL" default:"24h"`
}

// LLMConfig groups every provider plus the shared generation options.
type LLMConfig struct {
	Groq        GroqConfig
	HuggingFace HuggingFaceConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	Generation  GenerationConfig
}

// ModelConfig is the per-call configuration handed to the inference client.
type ModelConfig struct {
	Provider    Provider
	Model       string
	MaxTokens   int
	Temperature float32
	APIKey      string
	BaseURL     string
}

// Validate rejects options that no retry could fix.
func (c ModelConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, fmt.Errorf("api key for provider %q is empty", c.Provider))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is empty"))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, fmt.Errorf("temperature must be within [0,1], got %.2f", c.Temperature))
	}
	if err := errors.Join(errs...); err != nil {
		return errx.Configuration(err, RemediationFor(c.Provider))
	}
	return nil
}

// RemediationFor names the variable a user should set for provider.
func RemediationFor(p Provider) string {
	if env := APIKeyEnv(p); env != "" {
		return fmt.Sprintf("invalid %s configuration: set %s in .env.local or the environment", p, env)
	}
	return "no inference provider configured: set GROQ_API_KEY, HUGGINGFACE_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY"
}

// APIKeyEnv returns the environment variable holding provider's key.
func APIKeyEnv(p Provider) string {
	switch p {
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderHuggingFace:
		return "HUGGINGFACE_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// ModelConfigFor builds the call configuration for a single provider.
func (c LLMConfig) ModelConfigFor(p Provider) (ModelConfig, error) {
	mc := ModelConfig{
		Provider:    p,
		MaxTokens:   c.Generation.MaxTokens,
		Temperature: c.Generation.Temperature,
	}
	switch p {
	case ProviderGroq:
		mc.APIKey, mc.Model, mc.BaseURL = c.Groq.APIKey, c.Groq.Model, c.Groq.BaseURL
	case ProviderHuggingFace:
		mc.APIKey, mc.Model, mc.BaseURL = c.HuggingFace.APIKey, c.HuggingFace.Model, c.HuggingFace.URL
	case ProviderOpenAI:
		mc.APIKey, mc.Model, mc.BaseURL = c.OpenAI.APIKey, c.OpenAI.Model, c.OpenAI.BaseURL
	case ProviderGemini:
		mc.APIKey, mc.Model, mc.BaseURL = c.Gemini.APIKey, c.Gemini.Model, c.Gemini.BaseURL
	default:
		return ModelConfig{}, errx.Configuration(fmt.Errorf("unknown provider %q", p), RemediationFor(""))
	}
	return mc, nil
}

// ResolveProvider picks the explicit LLM_PROVIDER or the first provider in
// ProviderFallbackOrder that has a key. It fails with a configuration error
// when nothing is usable.
func (c LLMConfig) ResolveProvider() (ModelConfig, error) {
	if name := strings.TrimSpace(c.Generation.Provider); name != "" {
		mc, err := c.ModelConfigFor(Provider(strings.ToLower(name)))
		if err != nil {
			return ModelConfig{}, err
		}
		if err := mc.Validate(); err != nil {
			return ModelConfig{}, err
		}
		return mc, nil
	}

	for _, p := range ProviderFallbackOrder {
		mc, _ := c.ModelConfigFor(p)
		if strings.TrimSpace(mc.APIKey) == "" {
			continue
		}
		if err := mc.Validate(); err != nil {
			return ModelConfig{}, err
		}
		return mc, nil
	}
	return ModelConfig{}, errx.Configuration(errors.New("no provider api key found"), RemediationFor(""))
}
