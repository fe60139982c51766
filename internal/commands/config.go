package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tripsmart/server/internal/agent/model"
	"github.com/tripsmart/server/internal/agent/pipeline"
	"github.com/tripsmart/server/internal/agent/pipeline/inference"
	"github.com/tripsmart/server/internal/agent/pipeline/observers"
	"github.com/tripsmart/server/internal/agent/pipeline/prompts"
	"github.com/tripsmart/server/internal/agent/repo"
	"github.com/tripsmart/server/internal/core"
	logx "github.com/tripsmart/server/pkg/logger"
	pkgredis "github.com/tripsmart/server/pkg/redis"
	"github.com/tripsmart/server/pkg/tracer"
)

// envFiles are loaded in order; values already set are never overridden, so
// .env.local wins over .env and the process environment wins over both.
var envFiles = []string{".env.local", ".env"}

// AppConfig defines every configurable parameter of the planner, sourced
// from environment variables (optionally loaded from .env files).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis   pkgredis.Config
	HTTP    HTTPConfig
	Tracing tracer.Config

	// Inference
	LLM      model.LLMConfig
	Retry    model.RetryConfig
	Pipeline model.PipelineConfig
}

type HTTPConfig struct {
	Addr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	CORSOrigins  []string      `envconfig:"HTTP_CORS_ORIGINS"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"11m"`
}

func (c *AppConfig) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// LoadConfig reads the env files then processes the environment.
func LoadConfig() (*AppConfig, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Err(err).Str("file", f).Msg("could not load env file")
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

// InitLogging configures the global logger for the loaded environment.
func InitLogging(cfg *AppConfig, debug bool) {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Level: level})
}

// App holds the wired planner: resolved model, store and pipeline.
type App struct {
	Config   *AppConfig
	Model    model.ModelConfig
	Repo     model.PlanRepository
	Pipeline *pipeline.Pipeline

	closers []func() error
}

// NewApp resolves the provider and builds the pipeline. Missing credentials
// fail here, before any stage runs.
func NewApp(ctx context.Context, cfg *AppConfig) (*App, error) {
	observers.Register()

	mc, err := cfg.LLM.ResolveProvider()
	if err != nil {
		return nil, err
	}
	if cfg.LLM.HuggingFace.APIKey == "" {
		logx.Warn().Msg("HUGGINGFACE_API_KEY is not set; huggingface provider unavailable")
	}
	logx.Info().
		Str("provider", string(mc.Provider)).
		Str("model", mc.Model).
		Str("api_key", logx.MaskSecret(mc.APIKey)).
		Msg("inference provider selected")

	app := &App{Config: cfg, Model: mc}

	plans, err := app.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	app.Repo = plans

	client := inference.NewClient(
		inference.NewProviderBackend(&http.Client{}),
		inference.PolicyFromConfig(cfg.Retry),
	)
	p, err := pipeline.New(pipeline.Config{
		Builder: prompts.NewBuilder(cfg.Pipeline.PriorTextLimit),
		Client:  client,
		Model:   mc,
		Repo:    plans,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	app.Pipeline = p
	return app, nil
}

func (a *App) newRepository(ctx context.Context) (model.PlanRepository, error) {
	ttl, err := time.ParseDuration(a.Config.Pipeline.PlanTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid PLAN_TTL '%s': %w", a.Config.Pipeline.PlanTTL, err)
	}
	if !a.Config.Redis.Enabled() {
		logx.Debug().Dur("ttl", ttl).Msg("using in-memory plan store")
		return repo.NewMemoryPlanRepository(ttl), nil
	}

	rdb, err := a.Config.Redis.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise redis client: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)
	logx.Info().Dur("ttl", ttl).Msg("using redis plan store")
	return repo.NewRedisPlanRepository(rdb, ttl), nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
