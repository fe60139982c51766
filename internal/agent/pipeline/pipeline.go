package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripsmart/server/internal/agent/model"
	"github.com/tripsmart/server/internal/agent/pipeline/prompts"
	errx "github.com/tripsmart/server/internal/core/error"
	logx "github.com/tripsmart/server/pkg/logger"
	"github.com/tripsmart/server/pkg/metrics"
	"github.com/tripsmart/server/pkg/tracer"
)

const saveTimeout = 5 * time.Second

// PromptBuilder renders the prompt for one stage.
type PromptBuilder interface {
	Build(ctx context.Context, stage model.StageName, prefs model.TravelPreferences, prior []model.StageResult) (string, error)
}

// Generator sends one prompt to the hosted model.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg model.ModelConfig) (*model.Completion, error)
}

// Runner executes the planning pipeline for one submission.
type Runner interface {
	Run(ctx context.Context, prefs model.TravelPreferences) (*model.PlanResult, error)
}

// Config holds the collaborators of a Pipeline.
type Config struct {
	Builder PromptBuilder
	Client  Generator
	Model   model.ModelConfig

	// Repo is optional; finished and halted plans are saved to it.
	Repo model.PlanRepository

	Now   func() time.Time
	NewID func() string
}

// Pipeline runs Cities, Research, Itinerary and Budget strictly in order.
// It holds no per-run state and can serve concurrent runs.
type Pipeline struct {
	builder PromptBuilder
	client  Generator
	model   model.ModelConfig
	repo    model.PlanRepository
	now     func() time.Time
	newID   func() string
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Builder == nil {
		return nil, fmt.Errorf("prompt builder is nil")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("inference client is nil")
	}
	p := &Pipeline{
		builder: cfg.Builder,
		client:  cfg.Client,
		model:   cfg.Model,
		repo:    cfg.Repo,
		now:     cfg.Now,
		newID:   cfg.NewID,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = func() string { return uuid.NewString() }
	}
	return p, nil
}

// Run validates prefs and executes every stage, halting at the first
// failure. The returned plan holds results for the stages that ran. The error
// is nil only when the plan reached PlanDone; invalid preferences return a
// nil plan.
func (p *Pipeline) Run(ctx context.Context, prefs model.TravelPreferences) (*model.PlanResult, error) {
	prefs = prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		return nil, errx.InvalidPreferences(err)
	}

	plan := model.NewPlanResult(p.newID(), prefs, p.now())
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.String("llm.provider", string(p.model.Provider)),
	))
	defer span.End()

	logx.Info().Str("plan_id", plan.ID).
		Str("origin", prefs.Origin).
		Str("destination", prefs.Destination).
		Int("days", prefs.DurationDays).
		Msg("planning started")

	var runErr error
	for _, stage := range model.Stages {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run cancelled before stage %s: %w", stage, err)
			plan.Halt(stage, runErr, p.now())
			break
		}

		result, err := p.runStage(ctx, stage, plan)
		plan.Record(result)
		if err != nil {
			runErr = fmt.Errorf("stage %s: %w", stage, err)
			plan.Halt(stage, runErr, p.now())
			break
		}
		if stage == model.StageCities {
			plan.SelectedCity = prompts.SelectedCity(prefs, result.ResponseText)
		}
	}
	if runErr == nil {
		plan.Finish(p.now())
	} else {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	}

	metrics.PlansTotal.WithLabelValues(string(plan.State), string(plan.HaltedAt)).Inc()
	metrics.PlanCostUSD.Add(plan.TotalCostUSD)
	logx.Info().Str("plan_id", plan.ID).
		Str("state", string(plan.State)).
		Str("halted_at", string(plan.HaltedAt)).
		Float64("cost_usd", plan.TotalCostUSD).
		Msg("planning finished")

	p.save(ctx, plan)
	return plan, runErr
}

func (p *Pipeline) runStage(ctx context.Context, stage model.StageName, plan *model.PlanResult) (model.StageResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(attribute.String("stage", string(stage))))
	defer span.End()

	start := p.now()
	res := model.StageResult{
		Stage:     stage,
		StartedAt: start,
		Provider:  string(p.model.Provider),
		Model:     p.model.Model,
	}
	fail := func(err error) (model.StageResult, error) {
		res.ErrorMessage = err.Error()
		res.DurationMs = p.now().Sub(start).Milliseconds()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.StageRunsTotal.WithLabelValues(string(stage), string(model.StatusFailed)).Inc()
		logx.Error().Err(err).Str("plan_id", plan.ID).Str("stage", string(stage)).Int("attempts", res.Attempts).Msg("stage failed")
		return res, err
	}

	promptText, err := p.builder.Build(ctx, stage, plan.Preferences, plan.Results)
	if err != nil {
		return fail(err)
	}
	res.PromptText = promptText

	out, err := p.client.Generate(ctx, promptText, p.model)
	if err != nil {
		var appErr *errx.AppError
		if errors.As(err, &appErr) {
			res.Attempts = appErr.Attempts
		}
		return fail(err)
	}

	res.ResponseText = out.Text
	res.Succeeded = true
	res.Attempts = out.Attempts
	res.Usage = out.Usage
	if out.Provider != "" {
		res.Provider = out.Provider
	}
	if out.Model != "" {
		res.Model = out.Model
	}
	_, _, res.CostUSD = model.ComputeCost(out.Usage, model.ResolvePricing(res.Model))
	res.DurationMs = p.now().Sub(start).Milliseconds()

	metrics.StageRunsTotal.WithLabelValues(string(stage), string(model.StatusSucceeded)).Inc()
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(float64(res.DurationMs) / 1000)
	logx.Info().Str("plan_id", plan.ID).
		Str("stage", string(stage)).
		Int("attempts", res.Attempts).
		Int64("duration_ms", res.DurationMs).
		Msg("stage succeeded")
	return res, nil
}

func (p *Pipeline) save(ctx context.Context, plan *model.PlanResult) {
	if p.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := p.repo.Save(ctx, plan); err != nil {
		logx.Warn().Err(err).Str("plan_id", plan.ID).Msg("failed to store plan")
	}
}

var _ Runner = (*Pipeline)(nil)
