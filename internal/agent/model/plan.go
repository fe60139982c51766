package model

import (
	"context"
	"time"

	errx "github.com/tripsmart/server/internal/core/error"
)

// PlanState is the terminal or in-progress state of a pipeline run.
type PlanState string

const (
	PlanRunning PlanState = "running"
	PlanDone    PlanState = "done"
	PlanHalted  PlanState = "halted"
)

// PlanResult is the ordered set of stage outputs for one submission.
// Results only holds stages that actually ran.
type PlanResult struct {
	ID          string            `json:"id" yaml:"id"`
	Preferences TravelPreferences `json:"preferences" yaml:"preferences"`
	Results     []StageResult     `json:"results" yaml:"results"`
	State       PlanState         `json:"state" yaml:"state"`

	HaltedAt  StageName `json:"halted_at,omitempty" yaml:"halted_at,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind errx.Kind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`

	SelectedCity string    `json:"selected_city,omitempty" yaml:"selected_city,omitempty"`
	TotalCostUSD float64   `json:"total_cost_usd" yaml:"total_cost_usd"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// NewPlanResult starts a running plan for the given preferences.
func NewPlanResult(id string, prefs TravelPreferences, now time.Time) *PlanResult {
	return &PlanResult{
		ID:          id,
		Preferences: prefs,
		Results:     make([]StageResult, 0, len(Stages)),
		State:       PlanRunning,
		CreatedAt:   now,
	}
}

// Clone returns a deep copy that shares no slices or pointers with p.
func (p *PlanResult) Clone() *PlanResult {
	cp := *p
	if p.Preferences.Interests != nil {
		cp.Preferences.Interests = append([]string(nil), p.Preferences.Interests...)
	}
	if p.Results != nil {
		cp.Results = make([]StageResult, len(p.Results), cap(p.Results))
		copy(cp.Results, p.Results)
		for i := range cp.Results {
			if u := cp.Results[i].Usage; u != nil {
				usage := *u
				cp.Results[i].Usage = &usage
			}
		}
	}
	return &cp
}

// Result returns the recorded result for stage, or nil if it never ran.
func (p *PlanResult) Result(stage StageName) *StageResult {
	for i := range p.Results {
		if p.Results[i].Stage == stage {
			return &p.Results[i]
		}
	}
	return nil
}

// StageStatus reports succeeded, failed or not_run for stage.
func (p *PlanResult) StageStatus(stage StageName) StageStatus {
	return p.Result(stage).Status()
}

// Pending lists stages that have no recorded result.
func (p *PlanResult) Pending() []StageName {
	var out []StageName
	for _, s := range Stages {
		if p.Result(s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// Record appends a stage result and accumulates cost.
func (p *PlanResult) Record(r StageResult) {
	p.Results = append(p.Results, r)
	p.TotalCostUSD += r.CostUSD
}

// Finish marks the plan done.
func (p *PlanResult) Finish(now time.Time) {
	p.State = PlanDone
	p.CompletedAt = now
}

// Halt marks the plan halted at stage with err.
func (p *PlanResult) Halt(stage StageName, err error, now time.Time) {
	p.State = PlanHalted
	p.HaltedAt = stage
	p.CompletedAt = now
	if err != nil {
		p.Error = err.Error()
		p.ErrorKind = errx.KindOf(err)
	}
}

// PlanRepository stores finished plans as short-lived session state.
type PlanRepository interface {
	// Save stores the plan under its ID, replacing any previous copy.
	Save(ctx context.Context, plan *PlanResult) error

	// Load returns the plan or an errx.ErrNotFound error.
	Load(ctx context.Context, id string) (*PlanResult, error)

	// Delete removes a stored plan. Deleting a missing plan is not an error.
	Delete(ctx context.Context, id string) error
}
