package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
)

const (
	citiesText    = "1. Kyoto, Japan - temples and kaiseki\n2. Osaka, Japan - street food\n3. Tokyo, Japan - everything"
	researchText  = "Kyoto research: Nishiki Market, Gion, Fushimi Inari."
	itineraryText = "Day 1: Fushimi Inari at dawn. Day 2: Arashiyama."
)

func prefs() model.TravelPreferences {
	return model.TravelPreferences{
		Origin:       "NYC",
		Destination:  "Japan",
		Interests:    []string{"food"},
		Season:       model.SeasonSummer,
		DurationDays: 7,
		BudgetLevel:  model.BudgetMedium,
		TravelType:   "leisure",
	}
}

func succeeded(stage model.StageName, text string) model.StageResult {
	return model.StageResult{Stage: stage, ResponseText: text, Succeeded: true}
}

func TestBuildCitiesWithoutPrior(t *testing.T) {
	b := NewBuilder(0)

	got, err := b.Build(context.Background(), model.StageCities, prefs(), nil)
	require.NoError(t, err)

	assert.Contains(t, got, "NYC")
	assert.Contains(t, got, "Japan")
	assert.Contains(t, got, "food")
	assert.Contains(t, got, "7 days")
	assert.NotContains(t, got, "<recommended_cities>")
	assert.NotContains(t, got, "<no value>")
}

func TestBuildEmbedsPreviousStageVerbatim(t *testing.T) {
	b := NewBuilder(0)
	ctx := context.Background()
	prior := []model.StageResult{
		succeeded(model.StageCities, citiesText),
		succeeded(model.StageResearch, researchText),
		succeeded(model.StageItinerary, itineraryText),
	}

	research, err := b.Build(ctx, model.StageResearch, prefs(), prior[:1])
	require.NoError(t, err)
	assert.Contains(t, research, citiesText)
	assert.Contains(t, research, "focus on Kyoto")

	itinerary, err := b.Build(ctx, model.StageItinerary, prefs(), prior[:2])
	require.NoError(t, err)
	assert.Contains(t, itinerary, researchText)
	assert.Contains(t, itinerary, citiesText)

	budget, err := b.Build(ctx, model.StageBudget, prefs(), prior)
	require.NoError(t, err)
	assert.Contains(t, budget, itineraryText)
	assert.NotContains(t, budget, researchText)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(0)
	prior := []model.StageResult{succeeded(model.StageCities, citiesText)}

	first, err := b.Build(context.Background(), model.StageResearch, prefs(), prior)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), model.StageResearch, prefs(), prior)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildMissingDependency(t *testing.T) {
	b := NewBuilder(0)
	ctx := context.Background()

	_, err := b.Build(ctx, model.StageResearch, prefs(), nil)
	assert.ErrorIs(t, err, errx.ErrMissingDependency)

	failed := model.StageResult{Stage: model.StageCities, Succeeded: false, ErrorMessage: "boom"}
	_, err = b.Build(ctx, model.StageResearch, prefs(), []model.StageResult{failed})
	assert.ErrorIs(t, err, errx.ErrMissingDependency)

	_, err = b.Build(ctx, model.StageBudget, prefs(), []model.StageResult{succeeded(model.StageCities, citiesText)})
	assert.ErrorIs(t, err, errx.ErrMissingDependency)
}

func TestBuildUnknownStage(t *testing.T) {
	_, err := NewBuilder(0).Build(context.Background(), "packing", prefs(), nil)
	assert.Error(t, err)
}

func TestBuildTreatsUserTextAsData(t *testing.T) {
	p := prefs()
	p.Origin = "{{.destination}} \x00N\xedY\xa0\x80C"

	got, err := NewBuilder(0).Build(context.Background(), model.StageCities, p, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "{{.destination}} NYC")
	assert.NotContains(t, got, "\x00")
}

func TestBuildTruncatesOversizedPrior(t *testing.T) {
	b := NewBuilder(50)
	long := "1. Kyoto, Japan\n" + strings.Repeat("x", 500)

	got, err := b.Build(context.Background(), model.StageResearch, prefs(), []model.StageResult{succeeded(model.StageCities, long)})
	require.NoError(t, err)
	assert.Contains(t, got, truncatedMarker)
	assert.NotContains(t, got, strings.Repeat("x", 100))
}

func TestDependencies(t *testing.T) {
	assert.Empty(t, Dependencies(model.StageCities))
	assert.Equal(t, []model.StageName{model.StageCities}, Dependencies(model.StageResearch))
	assert.Equal(t, []model.StageName{model.StageCities, model.StageItinerary}, Dependencies(model.StageBudget))
}
