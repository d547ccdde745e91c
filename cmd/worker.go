package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/jobs"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run analysis job workers without the HTTP API",
	Long: "Polls the job store for queued analyses and executes them on a " +
		"worker pool. Runs until interrupted. Requires a shared job store " +
		"(sqlite or postgres) so a separate serve process can enqueue work.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Jobs.Mode != "async" {
			return eris.New("cmd: worker requires jobs.mode=async")
		}
		if cfg.Store.Driver == "memory" {
			return eris.New("cmd: worker requires a persistent job store")
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		async := jobs.NewAsync(e.store, e.pipeline, cfg.Jobs)
		go jobs.NewJanitor(e.store, e.docs, cfg.Jobs).Run(ctx)

		zap.L().Named("worker").Info("workers started",
			zap.Int("workers", cfg.Jobs.Workers),
			zap.String("store", cfg.Store.Driver))

		async.Start(ctx)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
