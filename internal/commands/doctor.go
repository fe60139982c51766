package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tripsmart/server/internal/agent/model"
	logx "github.com/tripsmart/server/pkg/logger"
)

var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Show resolved configuration with masked keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		InitLogging(cfg, false)
		return writeDoctor(cmd.OutOrStdout(), cfg)
	},
}

// writeDoctor prints provider keys and the provider a run would use. A
// missing provider is reported, not returned, unless nothing is usable.
func writeDoctor(w io.Writer, cfg *AppConfig) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "environment\t%s\n", cfg.Env())
	for _, p := range model.ProviderFallbackOrder {
		mc, _ := cfg.LLM.ModelConfigFor(p)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p, model.APIKeyEnv(p), logx.MaskSecret(mc.APIKey), mc.Model)
	}
	fmt.Fprintf(tw, "max tokens\t%d\n", cfg.LLM.Generation.MaxTokens)
	fmt.Fprintf(tw, "temperature\t%.2f\n", cfg.LLM.Generation.Temperature)
	fmt.Fprintf(tw, "retries\t%d (backoff %s..%s)\n", cfg.Retry.MaxRetries, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff)
	fmt.Fprintf(tw, "timeouts\tattempt %s, call %s\n", cfg.Retry.AttemptTimeout, cfg.Retry.CallTimeout)

	store := "memory"
	if cfg.Redis.Enabled() {
		store = "redis"
	}
	fmt.Fprintf(tw, "plan store\t%s (ttl %s)\n", store, cfg.Pipeline.PlanTTL)

	mc, err := cfg.LLM.ResolveProvider()
	if err != nil {
		fmt.Fprintf(tw, "selected\tnone\n")
		_ = tw.Flush()
		return err
	}
	fmt.Fprintf(tw, "selected\t%s (%s)\n", mc.Provider, mc.Model)
	return tw.Flush()
}
