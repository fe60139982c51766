package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tripsmart/server/internal/server"
	logx "github.com/tripsmart/server/pkg/logger"
	"github.com/tripsmart/server/pkg/tracer"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the planner HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		InitLogging(cfg, false)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, err := tracer.Init(ctx, cfg.Tracing)
		if err != nil {
			return err
		}
		defer shutdownTracer(ctx, shutdown)

		app, err := NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		router := server.NewRouter(server.Config{
			Environment:    cfg.Env(),
			CORSOrigins:    cfg.HTTP.CORSOrigins,
			TracingEnabled: cfg.Tracing.Enabled,
			ServiceName:    cfg.Tracing.ServiceName,
		}, app.Pipeline, app.Repo)
		return server.Serve(ctx, cfg.HTTP.Addr, router, cfg.HTTP.WriteTimeout)
	},
}

const tracerShutdownTimeout = 10 * time.Second

// shutdownTracer flushes pending spans. ctx is usually the cancelled signal
// context, so only its values are kept.
func shutdownTracer(ctx context.Context, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tracerShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logx.Warn().Err(err).Msg("failed to shutdown tracer")
	}
}

func init() {
	ServeCmd.Flags().String("addr", "", "listen address, overrides HTTP_ADDR")
}
