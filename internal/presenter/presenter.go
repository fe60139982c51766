package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/tripsmart/server/internal/agent/model"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", v)
	}
}

// Panel is one labelled output group with its status indicator.
type Panel struct {
	Stage   model.StageName   `json:"stage" yaml:"stage"`
	Title   string            `json:"title" yaml:"title"`
	Status  model.StageStatus `json:"status" yaml:"status"`
	Content string            `json:"content,omitempty" yaml:"content,omitempty"`
	Error   string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// View is the display form of a plan: one panel per stage, in pipeline
// order, plus the optional raw stage data.
type View struct {
	PlanID       string          `json:"plan_id" yaml:"plan_id"`
	State        model.PlanState `json:"state" yaml:"state"`
	HaltedAt     model.StageName `json:"halted_at,omitempty" yaml:"halted_at,omitempty"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	SelectedCity string          `json:"selected_city,omitempty" yaml:"selected_city,omitempty"`
	TotalCostUSD float64         `json:"total_cost_usd" yaml:"total_cost_usd"`
	Panels       []Panel         `json:"panels" yaml:"panels"`
	Debug        string          `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// NewView groups plan results into panels. Stages that never ran still get a
// panel marked not_run so partial plans keep all four slots.
func NewView(plan *model.PlanResult, debug bool) (*View, error) {
	if plan == nil {
		return nil, fmt.Errorf("nil plan")
	}
	v := &View{
		PlanID:       plan.ID,
		State:        plan.State,
		HaltedAt:     plan.HaltedAt,
		Error:        plan.Error,
		ErrorKind:    string(plan.ErrorKind),
		SelectedCity: plan.SelectedCity,
		TotalCostUSD: plan.TotalCostUSD,
		Panels:       make([]Panel, 0, len(model.Stages)),
	}
	for _, stage := range model.Stages {
		r := plan.Result(stage)
		p := Panel{Stage: stage, Title: stage.Title(), Status: r.Status()}
		if r != nil {
			p.Content = r.ResponseText
			p.Error = r.ErrorMessage
		}
		v.Panels = append(v.Panels, p)
	}
	if debug {
		raw, err := json.MarshalIndent(plan.Results, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal debug panel: %w", err)
		}
		v.Debug = string(raw)
	}
	return v, nil
}

func Render(w io.Writer, v *View, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, v)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

func renderText(w io.Writer, v *View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Plan\t%s\n", v.PlanID)
	fmt.Fprintf(tw, "State\t%s\n", v.State)
	if v.SelectedCity != "" {
		fmt.Fprintf(tw, "City\t%s\n", v.SelectedCity)
	}
	if v.HaltedAt != "" {
		fmt.Fprintf(tw, "Halted at\t%s\n", v.HaltedAt)
	}
	fmt.Fprintf(tw, "Cost\t$%.4f\n", v.TotalCostUSD)
	for _, p := range v.Panels {
		fmt.Fprintf(tw, "%s\t%s %s\n", p.Title, indicator(p.Status), p.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var b strings.Builder
	for _, p := range v.Panels {
		fmt.Fprintf(&b, "\n== %s %s ==\n", indicator(p.Status), p.Title)
		switch p.Status {
		case model.StatusSucceeded:
			b.WriteString(strings.TrimRight(p.Content, "\n"))
			b.WriteString("\n")
		case model.StatusFailed:
			fmt.Fprintf(&b, "error: %s\n", p.Error)
		default:
			b.WriteString("(not run)\n")
		}
	}
	if v.Debug != "" {
		b.WriteString("\n== Debug ==\n")
		b.WriteString(v.Debug)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func indicator(s model.StageStatus) string {
	switch s {
	case model.StatusSucceeded:
		return "[ok]"
	case model.StatusFailed:
		return "[failed]"
	default:
		return "[-]"
	}
}
