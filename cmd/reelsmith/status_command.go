package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/ipc"
	"reelsmith/internal/job"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and job queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusWarn
				if resp.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(resp.Running), colorize))
				fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(resp.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Output root", statusInfo, resp.OutputRoot, colorize))
				fmt.Fprintln(stdout, renderStatusLine("History", statusInfo, resp.HistoryPath, colorize))
				if resp.LastError != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, resp.LastError, colorize))
				}

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Active Job", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if resp.ActiveJobID == "" {
					fmt.Fprintln(stdout, renderStatusLine("Job", statusInfo, "idle", colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Job", statusOK, resp.ActiveJobID, colorize))
					fmt.Fprintln(stdout, renderStatusLine("Stage", statusInfo, stageLabel(resp.ActiveStage), colorize))
					fmt.Fprintln(stdout, renderStatusLine("Running for", statusInfo, formatAge(resp.ActiveSince), colorize))
					fmt.Fprintln(stdout, renderStatusLine("Est. remaining", statusInfo, formatMinutes(resp.ActiveEstimate), colorize))
				}

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Jobs", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildStatusCountRows(resp.StatusCounts)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No jobs found")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))

				if len(resp.PendingEstimates) > 0 {
					fmt.Fprintln(stdout)
					for _, line := range renderSectionHeader("Pending Estimates", colorize) {
						fmt.Fprintln(stdout, line)
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"Job", "Est. Minutes"},
						buildEstimateRows(resp.PendingEstimates),
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

// buildStatusCountRows orders counts by workflow progression rather than
// alphabetically.
func buildStatusCountRows(counts map[string]int) [][]string {
	order := []job.Status{
		job.StatusPending,
		job.StatusRunning,
		job.StatusPaused,
		job.StatusError,
		job.StatusDone,
	}
	rows := make([][]string, 0, len(counts))
	for _, status := range order {
		if count, ok := counts[string(status)]; ok && count > 0 {
			rows = append(rows, []string{string(status), strconv.Itoa(count)})
		}
	}
	return rows
}

func buildEstimateRows(estimates map[string]float64) [][]string {
	ids := make([]string, 0, len(estimates))
	for id := range estimates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, fmt.Sprintf("%.1f", estimates[id])})
	}
	return rows
}
