package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Season of travel. SeasonAny leaves timing to the model.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
	SeasonAny    Season = "any"
)

// BudgetLevel is the coarse spending tier chosen by the traveller.
type BudgetLevel string

const (
	BudgetLow    BudgetLevel = "low"
	BudgetMedium BudgetLevel = "medium"
	BudgetHigh   BudgetLevel = "high"
)

const (
	MinDurationDays     = 1
	MaxDurationDays     = 14
	DefaultDurationDays = 7
	DefaultTravelType   = "leisure"
)

// ParseSeason accepts the season names plus "fall" as an alias of autumn.
func ParseSeason(v string) (Season, error) {
	switch s := Season(strings.ToLower(strings.TrimSpace(v))); s {
	case SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter, SeasonAny:
		return s, nil
	case "fall":
		return SeasonAutumn, nil
	case "":
		return SeasonAny, nil
	default:
		return "", fmt.Errorf("unknown season %q", v)
	}
}

// ParseBudgetLevel accepts low, medium (or "mid") and high.
func ParseBudgetLevel(v string) (BudgetLevel, error) {
	switch b := BudgetLevel(strings.ToLower(strings.TrimSpace(v))); b {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return b, nil
	case "mid", "":
		return BudgetMedium, nil
	default:
		return "", fmt.Errorf("unknown budget level %q", v)
	}
}

// TravelPreferences is the validated form submission for one planning run.
type TravelPreferences struct {
	Origin       string      `json:"origin" yaml:"origin"`
	Destination  string      `json:"destination" yaml:"destination"`
	Interests    []string    `json:"interests" yaml:"interests"`
	Season       Season      `json:"season" yaml:"season"`
	DurationDays int         `json:"duration_days" yaml:"duration_days"`
	BudgetLevel  BudgetLevel `json:"budget_level" yaml:"budget_level"`
	TravelType   string      `json:"travel_type,omitempty" yaml:"travel_type,omitempty"`
}

// Normalize returns a copy with trimmed fields, defaults applied, season and
// budget aliases canonicalised and interests de-duplicated case-insensitively
// in sorted order.
func (p TravelPreferences) Normalize() TravelPreferences {
	out := p
	out.Origin = strings.TrimSpace(p.Origin)
	out.Destination = strings.TrimSpace(p.Destination)
	out.TravelType = strings.TrimSpace(p.TravelType)
	if out.TravelType == "" {
		out.TravelType = DefaultTravelType
	}
	// unknown values are left for Validate to reject
	if s, err := ParseSeason(string(p.Season)); err == nil {
		out.Season = s
	}
	if b, err := ParseBudgetLevel(string(p.BudgetLevel)); err == nil {
		out.BudgetLevel = b
	}
	if out.DurationDays == 0 {
		out.DurationDays = DefaultDurationDays
	}

	seen := make(map[string]struct{}, len(p.Interests))
	interests := make([]string, 0, len(p.Interests))
	for _, raw := range p.Interests {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		interests = append(interests, v)
	}
	sort.Slice(interests, func(i, j int) bool {
		return strings.ToLower(interests[i]) < strings.ToLower(interests[j])
	})
	out.Interests = interests
	return out
}

// Validate checks presence and ranges. It does not normalise.
func (p TravelPreferences) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Origin) == "" {
		errs = append(errs, errors.New("origin is required"))
	}
	if strings.TrimSpace(p.Destination) == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	if p.DurationDays < MinDurationDays || p.DurationDays > MaxDurationDays {
		errs = append(errs, fmt.Errorf("duration_days must be between %d and %d, got %d", MinDurationDays, MaxDurationDays, p.DurationDays))
	}
	if _, err := ParseSeason(string(p.Season)); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseBudgetLevel(string(p.BudgetLevel)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// InterestsText renders the interest set for prompts.
func (p TravelPreferences) InterestsText() string {
	if len(p.Interests) == 0 {
		return "general sightseeing"
	}
	return strings.Join(p.Interests, ", ")
}
