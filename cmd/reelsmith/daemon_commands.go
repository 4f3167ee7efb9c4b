package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop daemon processing; the active job is parked paused",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if !resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Stop request sent")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume [job-id]",
		Short: "Reset errored and paused jobs back to pending",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobID string
			if len(args) == 1 {
				jobID = strings.TrimSpace(args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resume(jobID)
				if err != nil {
					return err
				}
				switch resp.Reset {
				case 0:
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs needed resuming")
				case 1:
					fmt.Fprintln(cmd.OutOrStdout(), "1 job reset to pending")
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%d jobs reset to pending\n", resp.Reset)
				}
				return nil
			})
		},
	}
}

func newIntegrityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Audit job records against artifacts on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Integrity()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Results) == 0 {
					fmt.Fprintln(stdout, "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(resp.Results))
				unhealthy := 0
				for _, r := range resp.Results {
					verdict := "ok"
					if !r.Healthy {
						verdict = "UNHEALTHY"
						unhealthy++
					}
					missing := "-"
					if len(r.Missing) > 0 {
						labels := make([]string, 0, len(r.Missing))
						for _, stage := range r.Missing {
							labels = append(labels, stageLabel(stage))
						}
						missing = strings.Join(labels, ", ")
					}
					rows = append(rows, []string{r.JobID, r.Status, verdict, missing, r.Detail})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Job", "Status", "Verdict", "Remaining Stages", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				if unhealthy > 0 {
					fmt.Fprintf(stdout, "%d job(s) need attention; `reelsmith resume` re-queues them\n", unhealthy)
				}
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				} else if resp.Sent {
					fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
				}
				return nil
			})
		},
	}
}
