package model

import (
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/tripsmart/server/internal/core/error"
)

func validPrefs() TravelPreferences {
	return TravelPreferences{
		Origin:       "NYC",
		Destination:  "Japan",
		Interests:    []string{"food"},
		Season:       SeasonSummer,
		DurationDays: 7,
		BudgetLevel:  BudgetMedium,
	}
}

func TestValidatePreferences(t *testing.T) {
	require.NoError(t, validPrefs().Validate())

	p := validPrefs()
	p.Origin = "  "
	p.DurationDays = 15
	p.Season = "monsoon"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "origin is required")
	assert.Contains(t, err.Error(), "between 1 and 14")
	assert.Contains(t, err.Error(), "monsoon")

	p = validPrefs()
	p.DurationDays = 0
	assert.Error(t, p.Validate())
}

func TestNormalizePreferences(t *testing.T) {
	p := TravelPreferences{
		Origin:      " NYC ",
		Destination: "Japan",
		Interests:   []string{"Food", "history", " food ", "", "Art"},
	}
	n := p.Normalize()

	assert.Equal(t, "NYC", n.Origin)
	assert.Equal(t, []string{"Art", "Food", "history"}, n.Interests)
	assert.Equal(t, SeasonAny, n.Season)
	assert.Equal(t, BudgetMedium, n.BudgetLevel)
	assert.Equal(t, DefaultDurationDays, n.DurationDays)
	assert.Equal(t, DefaultTravelType, n.TravelType)
	assert.NoError(t, n.Validate())
}

func TestNormalizeCanonicalisesAliases(t *testing.T) {
	p := TravelPreferences{Origin: "NYC", Destination: "Japan", Season: "Fall", BudgetLevel: "MID", DurationDays: 5}
	n := p.Normalize()
	assert.Equal(t, SeasonAutumn, n.Season)
	assert.Equal(t, BudgetMedium, n.BudgetLevel)

	n = TravelPreferences{Season: " Winter ", BudgetLevel: "HIGH"}.Normalize()
	assert.Equal(t, SeasonWinter, n.Season)
	assert.Equal(t, BudgetHigh, n.BudgetLevel)

	// unknown values survive so Validate can report them
	n = TravelPreferences{Origin: "NYC", Destination: "Japan", Season: "rainy", BudgetLevel: "lavish", DurationDays: 5}.Normalize()
	assert.Equal(t, Season("rainy"), n.Season)
	assert.Equal(t, BudgetLevel("lavish"), n.BudgetLevel)
	assert.Error(t, n.Validate())
}

func TestInterestsText(t *testing.T) {
	assert.Equal(t, "general sightseeing", TravelPreferences{}.InterestsText())
	assert.Equal(t, "art, food", TravelPreferences{Interests: []string{"art", "food"}}.InterestsText())
}

func TestParseSeasonAndBudget(t *testing.T) {
	s, err := ParseSeason("Fall")
	require.NoError(t, err)
	assert.Equal(t, SeasonAutumn, s)

	_, err = ParseSeason("rainy")
	assert.Error(t, err)

	b, err := ParseBudgetLevel("HIGH")
	require.NoError(t, err)
	assert.Equal(t, BudgetHigh, b)

	_, err = ParseBudgetLevel("lavish")
	assert.Error(t, err)
}

func TestPlanResultLifecycle(t *testing.T) {
	now := time.Now()
	plan := NewPlanResult("p1", validPrefs(), now)
	assert.Equal(t, PlanRunning, plan.State)
	assert.Equal(t, Stages, plan.Pending())

	plan.Record(StageResult{Stage: StageCities, Succeeded: true, CostUSD: 0.25})
	plan.Record(StageResult{Stage: StageResearch, Succeeded: false, ErrorMessage: "boom", CostUSD: 0.5})
	plan.Halt(StageResearch, errx.Inference(errors.New("boom"), errx.CauseTransport, 3), now)

	assert.Equal(t, PlanHalted, plan.State)
	assert.Equal(t, StageResearch, plan.HaltedAt)
	assert.Equal(t, errx.KindInference, plan.ErrorKind)
	assert.Equal(t, StatusSucceeded, plan.StageStatus(StageCities))
	assert.Equal(t, StatusFailed, plan.StageStatus(StageResearch))
	assert.Equal(t, StatusNotRun, plan.StageStatus(StageBudget))
	assert.Equal(t, []StageName{StageItinerary, StageBudget}, plan.Pending())
	assert.InDelta(t, 0.75, plan.TotalCostUSD, 1e-9)
}

func TestPlanResultCloneIsDeep(t *testing.T) {
	plan := NewPlanResult("p1", validPrefs(), time.Now())
	plan.Record(StageResult{Stage: StageCities, Succeeded: true, Usage: &schema.TokenUsage{TotalTokens: 10}})

	cp := plan.Clone()
	plan.Preferences.Interests[0] = "museums"
	plan.Results[0].Usage.TotalTokens = 99
	plan.Results[0].ResponseText = "changed"

	assert.Equal(t, []string{"food"}, cp.Preferences.Interests)
	assert.Equal(t, 10, cp.Results[0].Usage.TotalTokens)
	assert.Empty(t, cp.Results[0].ResponseText)
}

func TestStageOrder(t *testing.T) {
	for i, s := range Stages {
		assert.Equal(t, i, s.Index())
		assert.NotEmpty(t, s.Title())
	}
	assert.Equal(t, -1, StageName("other").Index())
}

func TestModelConfigValidate(t *testing.T) {
	ok := ModelConfig{Provider: ProviderGroq, Model: "m", MaxTokens: 10, Temperature: 0.7, APIKey: "k"}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.APIKey = ""
	err := bad.Validate()
	assert.ErrorIs(t, err, errx.ErrConfiguration)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")

	bad = ok
	bad.Temperature = 1.5
	assert.ErrorIs(t, bad.Validate(), errx.ErrConfiguration)

	bad = ok
	bad.MaxTokens = 0
	assert.ErrorIs(t, bad.Validate(), errx.ErrConfiguration)
}

func TestResolveProvider(t *testing.T) {
	base := LLMConfig{Generation: GenerationConfig{MaxTokens: 2000, Temperature: 0.7}}
	base.Groq.Model = "llama-3.1-8b-instant"
	base.HuggingFace.Model = "HuggingFaceH4/zephyr-7b-beta"
	base.OpenAI.Model = "gpt-4o-mini"

	_, err := base.ResolveProvider()
	assert.ErrorIs(t, err, errx.ErrConfiguration)

	cfg := base
	cfg.HuggingFace.APIKey = "hf"
	cfg.OpenAI.APIKey = "sk"
	mc, err := cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderHuggingFace, mc.Provider)

	cfg.Groq.APIKey = "gsk"
	mc, err = cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, mc.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", mc.Model)

	cfg.Generation.Provider = "OpenAI"
	mc, err = cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, mc.Provider)

	cfg.Generation.Provider = "gemini"
	_, err = cfg.ResolveProvider()
	assert.ErrorIs(t, err, errx.ErrConfiguration)

	cfg.Generation.Provider = "mistral"
	_, err = cfg.ResolveProvider()
	assert.ErrorIs(t, err, errx.ErrConfiguration)
}

func TestComputeCost(t *testing.T) {
	p := ResolvePricing("gpt-4o-mini")
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}, p)
	assert.InDelta(t, 0.15, in, 1e-9)
	assert.InDelta(t, 0.30, out, 1e-9)
	assert.InDelta(t, 0.45, total, 1e-9)

	assert.Equal(t, ResolvePricing("llama3-8b-8192"), ResolvePricing("groq/llama3-8b-8192"))
	assert.Equal(t, Pricing{}, ResolvePricing("unknown"))

	_, _, total = ComputeCost(nil, p)
	assert.Zero(t, total)
}
