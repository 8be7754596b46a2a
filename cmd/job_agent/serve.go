package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/job-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Starts the HTTP API, resumes any jobs left in flight by a previous
run, and serves until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Crash recovery before accepting traffic keeps resumed jobs from racing
	// fresh submissions for the same records.
	if err := a.pipelines.ResumeInFlight(ctx); err != nil {
		a.logger.Error("startup resume failed", zap.Error(err))
		return err
	}

	srv := server.New(a.pipelines, a.repo, a.cfg.Port, a.logger)
	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	a.logger.Info("shutdown complete")
	return nil
}
