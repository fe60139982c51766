package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "travel-planner",
	Short: "AI travel planner",
	Long: `travel-planner turns a set of travel preferences into city picks,
destination research, a day-by-day itinerary and a budget breakdown by
chaining four prompts against a hosted language model.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(PlanCmd)
	rootCmd.AddCommand(ServeCmd)
	rootCmd.AddCommand(DoctorCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
