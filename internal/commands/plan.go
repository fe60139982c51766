package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tripsmart/server/internal/agent/model"
	"github.com/tripsmart/server/internal/agent/pipeline"
	errx "github.com/tripsmart/server/internal/core/error"
	"github.com/tripsmart/server/internal/presenter"
)

var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a trip and print the four panels",
	Example: `  travel-planner plan --origin NYC --destination Japan --interests food,temples \
    --season summer --days 7 --budget medium`,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		format, err := presenter.ParseFormat(mustString(cmd, "output"))
		if err != nil {
			return err
		}
		prefs, err := preferencesFromFlags(cmd)
		if err != nil {
			return err
		}

		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		InitLogging(cfg, debug)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		return runPlan(ctx, cmd.OutOrStdout(), app.Pipeline, prefs, format, debug)
	},
}

func init() {
	registerPlanFlags(PlanCmd)
}

func registerPlanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("origin", "", "city or country you travel from")
	f.String("destination", "", "country or region to visit")
	f.StringSlice("interests", nil, "comma separated interests, e.g. food,hiking")
	f.String("season", "any", "spring, summer, autumn, winter or any")
	f.Int("days", model.DefaultDurationDays, fmt.Sprintf("trip length in days (%d-%d)", model.MinDurationDays, model.MaxDurationDays))
	f.String("budget", string(model.BudgetMedium), "low, medium or high")
	f.String("travel-type", model.DefaultTravelType, "leisure, business, adventure, ...")
	f.StringP("output", "o", string(presenter.FormatText), "text, json or yaml")
	f.Bool("debug", false, "include raw stage data and debug logs")
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func preferencesFromFlags(cmd *cobra.Command) (model.TravelPreferences, error) {
	interests, _ := cmd.Flags().GetStringSlice("interests")
	days, _ := cmd.Flags().GetInt("days")

	season, seasonErr := model.ParseSeason(mustString(cmd, "season"))
	budget, budgetErr := model.ParseBudgetLevel(mustString(cmd, "budget"))
	if err := errors.Join(seasonErr, budgetErr); err != nil {
		return model.TravelPreferences{}, errx.InvalidPreferences(err)
	}

	prefs := model.TravelPreferences{
		Origin:       mustString(cmd, "origin"),
		Destination:  mustString(cmd, "destination"),
		Interests:    interests,
		Season:       season,
		DurationDays: days,
		BudgetLevel:  budget,
		TravelType:   strings.TrimSpace(mustString(cmd, "travel-type")),
	}.Normalize()
	if err := prefs.Validate(); err != nil {
		return model.TravelPreferences{}, errx.InvalidPreferences(err)
	}
	return prefs, nil
}

// runPlan renders whatever the pipeline produced, including partial plans,
// before returning the run error.
func runPlan(ctx context.Context, out io.Writer, runner pipeline.Runner, prefs model.TravelPreferences, format presenter.Format, debug bool) error {
	plan, runErr := runner.Run(ctx, prefs)
	if plan == nil {
		return runErr
	}
	view, err := presenter.NewView(plan, debug)
	if err != nil {
		return err
	}
	if err := presenter.Render(out, view, format); err != nil {
		return fmt.Errorf("render plan: %w", err)
	}
	return runErr
}
