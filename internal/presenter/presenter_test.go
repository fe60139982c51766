package presenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
)

func haltedPlan() *model.PlanResult {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	plan := model.NewPlanResult("p-1", model.TravelPreferences{Origin: "NYC", Destination: "Japan"}, now)
	plan.Record(model.StageResult{Stage: model.StageCities, ResponseText: "1. Kyoto\n2. Osaka\n", Succeeded: true, Attempts: 1, CostUSD: 0.0005})
	plan.Record(model.StageResult{Stage: model.StageResearch, ErrorMessage: "inference request failed (rate_limited): 429", Attempts: 3})
	plan.SelectedCity = "Kyoto"
	plan.Halt(model.StageResearch, errx.Inference(errors.New("429"), errx.CauseRateLimited, 3), now)
	return plan
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "yml": FormatYAML, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewViewKeepsAllPanels(t *testing.T) {
	v, err := NewView(haltedPlan(), false)
	require.NoError(t, err)

	require.Len(t, v.Panels, 4)
	assert.Equal(t, model.StatusSucceeded, v.Panels[0].Status)
	assert.Equal(t, "Recommended Cities", v.Panels[0].Title)
	assert.Equal(t, model.StatusFailed, v.Panels[1].Status)
	assert.Contains(t, v.Panels[1].Error, "429")
	assert.Equal(t, model.StatusNotRun, v.Panels[2].Status)
	assert.Equal(t, model.StatusNotRun, v.Panels[3].Status)
	assert.Equal(t, "inference", v.ErrorKind)
	assert.Empty(t, v.Debug)

	_, err = NewView(nil, false)
	assert.Error(t, err)
}

func TestDebugPanelHoldsRawResults(t *testing.T) {
	v, err := NewView(haltedPlan(), true)
	require.NoError(t, err)

	var raw []model.StageResult
	require.NoError(t, json.Unmarshal([]byte(v.Debug), &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, model.StageResearch, raw[1].Stage)
	assert.Equal(t, 3, raw[1].Attempts)
}

func TestRenderText(t *testing.T) {
	v, err := NewView(haltedPlan(), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v, FormatText))
	out := buf.String()

	assert.Contains(t, out, "== [ok] Recommended Cities ==\n1. Kyoto\n2. Osaka\n")
	assert.Contains(t, out, "== [failed] Destination Research ==\nerror: inference request failed")
	assert.Contains(t, out, "== [-] Itinerary ==\n(not run)")
	assert.Contains(t, out, "Halted at")
	assert.Contains(t, out, "$0.0005")
	assert.Contains(t, out, "== Debug ==")
}

func TestRenderJSONAndYAML(t *testing.T) {
	v, err := NewView(haltedPlan(), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, v, FormatJSON))
	var fromJSON View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, v.Panels, fromJSON.Panels)
	assert.Equal(t, model.StageResearch, fromJSON.HaltedAt)

	buf.Reset()
	require.NoError(t, Render(&buf, v, FormatYAML))
	assert.Contains(t, buf.String(), "halted_at: research")
	var fromYAML View
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, v.Panels, fromYAML.Panels)

	assert.Error(t, Render(&buf, v, Format("xml")))
}
