package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/estimate"
	"reelsmith/internal/history"
	"reelsmith/internal/plan"
)

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <job-id>",
		Short: "Estimate remaining minutes for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			jobStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			j, err := jobStore.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			var entries []history.Entry
			recorder, err := history.Open(cfg.HistoryDBPath(), cfg.Estimator.HistoryRetainCount)
			if err == nil {
				entries, _ = recorder.Recent(cmd.Context())
				_ = recorder.Close()
			}

			capMinutes := float64(cfg.Workflow.JobTimeoutMinutes)
			minutes := estimate.Estimate(j, entries, cfg.Estimator, capMinutes)
			missing := plan.MissingStages(j, j.Settings.MinImages)

			stdout := cmd.OutOrStdout()
			if len(missing) == 0 {
				fmt.Fprintf(stdout, "Job %s is complete; nothing left to run\n", j.ID)
				return nil
			}
			labels := make([]string, 0, len(missing))
			for _, stage := range missing {
				labels = append(labels, stageLabel(stage))
			}
			fmt.Fprintf(stdout, "Remaining stages: %s\n", strings.Join(labels, ", "))
			fmt.Fprintf(stdout, "Estimated time: %s (history sample: %d run(s))\n",
				formatMinutes(minutes), len(entries))
			return nil
		},
	}
}
