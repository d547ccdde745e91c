package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	Long: "Starts the HTTP API for blueprint uploads and job tracking. In async " +
		"job mode the server also runs the worker pool and the retention " +
		"janitor in-process.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().Named("serve")

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		runner, async := e.runner()
		if async != nil {
			go async.Start(ctx)
			go jobs.NewJanitor(e.store, e.docs, cfg.Jobs).Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newAPI(e.docs, runner, cfg.Docs.MaxSizeBytes).routes(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutdown error", zap.Error(err))
			}
		}()

		log.Info("listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("jobs_mode", cfg.Jobs.Mode))

		if err := srv.ListenAndServe(); err != nil && !eris.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "cmd: http server")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
