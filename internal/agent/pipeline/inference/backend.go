package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
	"google.golang.org/genai"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
	logx "github.com/tripsmart/server/pkg/logger"
)

// Backend performs exactly one request against a hosted model.
type Backend interface {
	Complete(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error)
}

// ProviderBackend dispatches to the SDK for cfg.Provider and caches one
// client per provider, model, endpoint and key.
type ProviderBackend struct {
	httpClient *http.Client

	mu         sync.RWMutex
	chatModels map[string]einomodel.BaseChatModel
	hfModels   map[string]llms.Model
}

// NewProviderBackend creates a backend. httpClient may be nil.
func NewProviderBackend(httpClient *http.Client) *ProviderBackend {
	return &ProviderBackend{
		httpClient: httpClient,
		chatModels: make(map[string]einomodel.BaseChatModel),
		hfModels:   make(map[string]llms.Model),
	}
}

func (b *ProviderBackend) Complete(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error) {
	switch cfg.Provider {
	case model.ProviderGroq, model.ProviderOpenAI, model.ProviderGemini:
		return b.completeChat(ctx, prompt, cfg)
	case model.ProviderHuggingFace:
		return b.completeHuggingFace(ctx, prompt, cfg)
	default:
		return nil, errx.Configuration(fmt.Errorf("unsupported provider %q", cfg.Provider), model.RemediationFor(""))
	}
}

func (b *ProviderBackend) completeChat(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error) {
	cm, err := b.chatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      cfg.Model,
		Type:      string(cfg.Provider),
		Component: components.ComponentOfChatModel,
	})
	msg, err := cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)},
		einomodel.WithTemperature(cfg.Temperature),
		einomodel.WithMaxTokens(cfg.MaxTokens),
	)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%s returned no message", cfg.Provider)
	}

	out := &model.Completion{Text: msg.Content, Provider: string(cfg.Provider), Model: cfg.Model}
	if msg.ResponseMeta != nil {
		out.Usage = msg.ResponseMeta.Usage
	}
	return out, nil
}

func (b *ProviderBackend) chatModel(ctx context.Context, cfg model.ModelConfig) (einomodel.BaseChatModel, error) {
	key := cacheKey(cfg)

	b.mu.RLock()
	cm, ok := b.chatModels[key]
	b.mu.RUnlock()
	if ok {
		return cm, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cm, ok = b.chatModels[key]; ok {
		return cm, nil
	}

	var err error
	switch cfg.Provider {
	case model.ProviderGemini:
		cm, err = newGeminiModel(ctx, cfg)
	default:
		cm, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   &cfg.MaxTokens,
			Temperature: &cfg.Temperature,
			HTTPClient:  b.httpClient,
		})
	}
	if err != nil {
		logx.Error().Err(err).Str("provider", string(cfg.Provider)).Str("model", cfg.Model).Msg("failed to create chat model")
		return nil, errx.Configuration(fmt.Errorf("create %s chat model: %w", cfg.Provider, err), model.RemediationFor(cfg.Provider))
	}

	b.chatModels[key] = cm
	logx.Debug().Str("provider", string(cfg.Provider)).Str("model", cfg.Model).Msg("chat model initialised")
	return cm, nil
}

func newGeminiModel(ctx context.Context, cfg model.ModelConfig) (einomodel.BaseChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
}

func (b *ProviderBackend) completeHuggingFace(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error) {
	llm, err := b.huggingFaceModel(cfg)
	if err != nil {
		return nil, err
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt,
		llms.WithTemperature(float64(cfg.Temperature)),
		llms.WithMaxLength(cfg.MaxTokens),
	)
	if err != nil {
		return nil, err
	}
	// text-generation endpoints may echo the prompt before the completion.
	text = strings.TrimSpace(strings.TrimPrefix(text, prompt))
	return &model.Completion{Text: text, Provider: string(cfg.Provider), Model: cfg.Model}, nil
}

func (b *ProviderBackend) huggingFaceModel(cfg model.ModelConfig) (llms.Model, error) {
	key := cacheKey(cfg)

	b.mu.RLock()
	llm, ok := b.hfModels[key]
	b.mu.RUnlock()
	if ok {
		return llm, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if llm, ok = b.hfModels[key]; ok {
		return llm, nil
	}

	opts := []huggingface.Option{
		huggingface.WithToken(cfg.APIKey),
		huggingface.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, huggingface.WithURL(cfg.BaseURL))
	}
	if b.httpClient != nil {
		opts = append(opts, huggingface.WithHTTPClient(b.httpClient))
	}
	hf, err := huggingface.New(opts...)
	if err != nil {
		return nil, errx.Configuration(fmt.Errorf("create huggingface client: %w", err), model.RemediationFor(cfg.Provider))
	}

	b.hfModels[key] = hf
	return hf, nil
}

func cacheKey(cfg model.ModelConfig) string {
	sum := sha256.Sum256([]byte(cfg.APIKey))
	return strings.Join([]string{string(cfg.Provider), cfg.Model, cfg.BaseURL, hex.EncodeToString(sum[:8])}, "|")
}

var _ Backend = (*ProviderBackend)(nil)
