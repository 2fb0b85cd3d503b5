package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"dataingest/internal/logging"
	"dataingest/internal/pipeline"

	"github.com/spf13/cobra"
)

// watchCmd re-runs ingestion whenever params.yaml changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run once, then re-run whenever the parameters file changes",
	Long: `Runs the ingestion step, then watches the parameters file and runs the
whole step again after every saved change. Failed runs are reported and the
watcher keeps going until interrupted (Ctrl+C).`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	run := func(ctx context.Context) error {
		rctx, cancel := commandContext(ctx)
		defer cancel()
		_, err := runOnce(rctx, out)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		return err
	}

	_ = run(ctx)

	w, err := pipeline.NewWatcher(paramsPath, run, logs.Get(logging.CategoryWatch))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-w.Done()
	stats := w.Stats()
	logs.Get(logging.CategoryWatch).Info("Watcher exiting after %d runs (%d failed)", stats.Runs, stats.Failures)
	return nil
}
