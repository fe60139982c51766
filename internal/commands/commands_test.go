package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripsmart/server/internal/agent/model"
	"github.com/tripsmart/server/internal/agent/repo"
	"github.com/tripsmart/server/internal/core"
	errx "github.com/tripsmart/server/internal/core/error"
	"github.com/tripsmart/server/internal/presenter"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GROQ_API_KEY", "HUGGINGFACE_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "LLM_PROVIDER", "REDIS_URL"} {
		t.Setenv(k, "")
	}
}

func newPlanFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "plan"}
	registerPlanFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestPreferencesFromFlags(t *testing.T) {
	cmd := newPlanFlags(t,
		"--origin", " NYC ", "--destination", "Japan",
		"--interests", "food,temples,Food",
		"--season", "fall", "--days", "5", "--budget", "high")

	prefs, err := preferencesFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "NYC", prefs.Origin)
	assert.Equal(t, model.SeasonAutumn, prefs.Season)
	assert.Equal(t, model.BudgetHigh, prefs.BudgetLevel)
	assert.Equal(t, 5, prefs.DurationDays)
	assert.Equal(t, []string{"food", "temples"}, prefs.Interests)
	assert.Equal(t, model.DefaultTravelType, prefs.TravelType)
}

func TestPreferencesFromFlagsInvalid(t *testing.T) {
	cmd := newPlanFlags(t, "--destination", "Japan", "--days", "20")
	_, err := preferencesFromFlags(cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrInvalidPreferences)
	assert.Contains(t, err.Error(), "origin is required")
	assert.Contains(t, err.Error(), "duration_days")

	cmd = newPlanFlags(t, "--origin", "NYC", "--destination", "Japan", "--budget", "lavish")
	_, err = preferencesFromFlags(cmd)
	assert.ErrorIs(t, err, errx.ErrInvalidPreferences)
}

type stubRunner struct {
	plan *model.PlanResult
	err  error
}

func (s stubRunner) Run(context.Context, model.TravelPreferences) (*model.PlanResult, error) {
	return s.plan, s.err
}

func TestRunPlanRendersPartialResults(t *testing.T) {
	now := time.Now()
	plan := model.NewPlanResult("p-1", model.TravelPreferences{}, now)
	plan.Record(model.StageResult{Stage: model.StageCities, ResponseText: "1. Kyoto", Succeeded: true})
	plan.Record(model.StageResult{Stage: model.StageResearch, ErrorMessage: "timeout"})
	runErr := errx.Inference(context.DeadlineExceeded, errx.CauseTimeout, 3)
	plan.Halt(model.StageResearch, runErr, now)

	var out bytes.Buffer
	err := runPlan(context.Background(), &out, stubRunner{plan: plan, err: runErr}, model.TravelPreferences{}, presenter.FormatText, false)
	assert.ErrorIs(t, err, errx.ErrInferenceFailure)
	assert.Contains(t, out.String(), "1. Kyoto")
	assert.Contains(t, out.String(), "error: timeout")
	assert.Contains(t, out.String(), "(not run)")
}

func TestRunPlanWithoutPlan(t *testing.T) {
	var out bytes.Buffer
	want := errors.New("boom")
	err := runPlan(context.Background(), &out, stubRunner{err: want}, model.TravelPreferences{}, presenter.FormatJSON, false)
	assert.ErrorIs(t, err, want)
	assert.Empty(t, out.String())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_1234567890abcdef")
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, core.Production, cfg.Env())
	assert.Equal(t, "gsk_1234567890abcdef", cfg.LLM.Groq.APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Groq.Model)
	assert.Equal(t, 2000, cfg.LLM.Generation.MaxTokens)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, 150*time.Second, cfg.Retry.CallTimeout)
	assert.Equal(t, 12000, cfg.Pipeline.PriorTextLimit)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.Redis.Enabled())
}

func TestNewAppFailsWithoutKeys(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	_, err = NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrConfiguration)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
}

func TestNewAppUsesMemoryStore(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, model.ProviderOpenAI, app.Model.Provider)
	assert.IsType(t, &repo.MemoryPlanRepository{}, app.Repo)
	assert.NotNil(t, app.Pipeline)
}

func TestNewAppRejectsBadTTL(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_1234567890abcdef")
	t.Setenv("PLAN_TTL", "soon")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	_, err = NewApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "PLAN_TTL")
}

func TestWriteDoctorMasksKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_1234567890abcdef")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeDoctor(&out, cfg))
	s := out.String()
	assert.NotContains(t, s, "gsk_1234567890abcdef")
	assert.Contains(t, s, "gsk_1234...cdef")
	assert.Contains(t, s, "(not set)")
	assert.Contains(t, s, "selected")
	assert.Contains(t, s, "groq (llama-3.1-8b-instant)")
}

func TestWriteDoctorReportsMissingProvider(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	var out bytes.Buffer
	err = writeDoctor(&out, cfg)
	assert.ErrorIs(t, err, errx.ErrConfiguration)
	assert.Contains(t, out.String(), "none")
}

func TestShutdownTracerOutlivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	shutdownTracer(ctx, func(sctx context.Context) error {
		called = true
		assert.NoError(t, sctx.Err())
		_, hasDeadline := sctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	assert.True(t, called)
}
