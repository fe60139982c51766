package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// StageName identifies one step of the planning pipeline.
type StageName string

const (
	StageCities    StageName = "cities"
	StageResearch  StageName = "research"
	StageItinerary StageName = "itinerary"
	StageBudget    StageName = "budget"
)

// Stages lists every stage in execution order.
var Stages = []StageName{StageCities, StageResearch, StageItinerary, StageBudget}

// Title is the panel heading shown to users.
func (s StageName) Title() string {
	switch s {
	case StageCities:
		return "Recommended Cities"
	case StageResearch:
		return "Destination Research"
	case StageItinerary:
		return "Itinerary"
	case StageBudget:
		return "Budget Breakdown"
	default:
		return string(s)
	}
}

// Index returns the position of s in Stages, or -1.
func (s StageName) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// StageStatus is the per-stage indicator shown next to each panel.
type StageStatus string

const (
	StatusSucceeded StageStatus = "succeeded"
	StatusFailed    StageStatus = "failed"
	StatusNotRun    StageStatus = "not_run"
)

// StageResult records one prompt/response exchange.
type StageResult struct {
	Stage        StageName `json:"stage" yaml:"stage"`
	PromptText   string    `json:"prompt_text" yaml:"prompt_text"`
	ResponseText string    `json:"response_text" yaml:"response_text"`
	Succeeded    bool      `json:"succeeded" yaml:"succeeded"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	Provider   string    `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	Attempts   int       `json:"attempts" yaml:"attempts"`
	DurationMs int64     `json:"duration_ms" yaml:"duration_ms"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`

	Usage   *schema.TokenUsage `json:"usage,omitempty" yaml:"usage,omitempty"`
	CostUSD float64            `json:"cost_usd" yaml:"cost_usd"`
}

// Status derives the display indicator for a recorded result.
func (r *StageResult) Status() StageStatus {
	if r == nil {
		return StatusNotRun
	}
	if r.Succeeded {
		return StatusSucceeded
	}
	return StatusFailed
}

// Completion is the text and metadata returned by one inference call.
type Completion struct {
	Text     string
	Provider string
	Model    string
	Usage    *schema.TokenUsage
	Attempts int
}
