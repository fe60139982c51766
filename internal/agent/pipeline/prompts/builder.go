package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
)

//go:embed template/cities.txt
var citiesTemplate string

//go:embed template/research.txt
var researchTemplate string

//go:embed template/itinerary.txt
var itineraryTemplate string

//go:embed template/budget.txt
var budgetTemplate string

// DefaultPriorTextLimit caps each interpolated prior response, in runes.
const DefaultPriorTextLimit = 12000

// dependencies lists, per stage, the prior stages whose text the prompt embeds.
// Budget reads the itinerary rather than the research so the prompt stays
// within an 8k-token context window.
var dependencies = map[model.StageName][]model.StageName{
	model.StageCities:    nil,
	model.StageResearch:  {model.StageCities},
	model.StageItinerary: {model.StageCities, model.StageResearch},
	model.StageBudget:    {model.StageCities, model.StageItinerary},
}

// Dependencies returns the prior stages required to build stage's prompt.
func Dependencies(stage model.StageName) []model.StageName {
	return dependencies[stage]
}

// Builder renders stage prompts. It is safe for concurrent use.
type Builder struct {
	priorTextLimit int
	templates      map[model.StageName]prompt.ChatTemplate
}

// NewBuilder creates a Builder; priorTextLimit <= 0 selects the default.
func NewBuilder(priorTextLimit int) *Builder {
	if priorTextLimit <= 0 {
		priorTextLimit = DefaultPriorTextLimit
	}
	return &Builder{
		priorTextLimit: priorTextLimit,
		templates: map[model.StageName]prompt.ChatTemplate{
			model.StageCities:    prompt.FromMessages(schema.GoTemplate, schema.UserMessage(citiesTemplate)),
			model.StageResearch:  prompt.FromMessages(schema.GoTemplate, schema.UserMessage(researchTemplate)),
			model.StageItinerary: prompt.FromMessages(schema.GoTemplate, schema.UserMessage(itineraryTemplate)),
			model.StageBudget:    prompt.FromMessages(schema.GoTemplate, schema.UserMessage(budgetTemplate)),
		},
	}
}

// Build renders the prompt for stage from the preferences and prior results.
// It fails with a missing dependency error when a required prior stage is
// absent or did not succeed.
func (b *Builder) Build(ctx context.Context, stage model.StageName, prefs model.TravelPreferences, prior []model.StageResult) (string, error) {
	tpl, ok := b.templates[stage]
	if !ok {
		return "", fmt.Errorf("unknown stage %q", stage)
	}

	byStage := make(map[model.StageName]model.StageResult, len(prior))
	for _, r := range prior {
		byStage[r.Stage] = r
	}

	vars := preferenceVars(prefs)
	for _, dep := range dependencies[stage] {
		r, ok := byStage[dep]
		if !ok || !r.Succeeded {
			return "", errx.MissingDependency(string(stage), string(dep))
		}
		vars[string(dep)] = TruncateByRunes(Sanitize(r.ResponseText), b.priorTextLimit)
	}
	if stage != model.StageCities {
		vars["city"] = Sanitize(SelectedCity(prefs, byStage[model.StageCities].ResponseText))
	}

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      string(stage),
		Type:      "StagePrompt",
		Component: components.ComponentOfPrompt,
	})
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stage, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("render %s prompt: empty result", stage)
	}
	return msgs[0].Content, nil
}

// SelectedCity is the city downstream stages focus on: the first city in the
// recommendations, or the requested destination when none can be parsed.
func SelectedCity(prefs model.TravelPreferences, citiesText string) string {
	return ExtractFirstCity(citiesText, prefs.Destination)
}

func preferenceVars(p model.TravelPreferences) map[string]any {
	season := string(p.Season)
	if p.Season == model.SeasonAny || p.Season == "" {
		season = "any time of year"
	}
	travelType := p.TravelType
	if travelType == "" {
		travelType = model.DefaultTravelType
	}
	return map[string]any{
		"origin":      Sanitize(p.Origin),
		"destination": Sanitize(p.Destination),
		"interests":   Sanitize(p.InterestsText()),
		"season":      season,
		"days":        strconv.Itoa(p.DurationDays),
		"budget":      string(p.BudgetLevel),
		"travel_type": Sanitize(travelType),
	}
}
