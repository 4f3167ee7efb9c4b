package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/ipc"
	"reelsmith/internal/job"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage compilation jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsDeleteCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := listJobSummaries(cmd.Context(), ctx, listStatuses)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				progress := strconv.Itoa(s.ProgressPercent) + "%"
				if s.ProgressMessage != "" {
					progress += " " + truncate(s.ProgressMessage, 32)
				}
				rows = append(rows, []string{
					s.ID,
					s.Status,
					strconv.Itoa(s.LinkCount),
					progress,
					formatAge(s.CreatedAt),
					truncate(s.LastError, 40),
				})
			}
			table := renderTable(
				[]string{"ID", "Status", "Links", "Progress", "Age", "Last Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

// listJobSummaries prefers the daemon over direct record access so the view
// reflects in-flight progress.
func listJobSummaries(cmdCtx context.Context, ctx *commandContext, statuses []string) ([]ipc.JobSummary, error) {
	if client, err := ctx.dialClient(); err == nil {
		defer client.Close()
		resp, err := client.List(statuses)
		if err != nil {
			return nil, err
		}
		return resp.Jobs, nil
	}

	jobStore, err := ctx.openStore()
	if err != nil {
		return nil, err
	}
	var filters []job.Status
	for _, raw := range statuses {
		status, ok := job.ParseStatus(raw)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", raw)
		}
		filters = append(filters, status)
	}
	jobs, err := jobStore.ScanAll(cmdCtx)
	if err != nil {
		return nil, err
	}
	summaries := make([]ipc.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		if len(filters) > 0 && !statusMatches(j.Status, filters) {
			continue
		}
		summary := ipc.JobSummary{
			ID:              j.ID,
			Status:          string(j.Status),
			LinkCount:       j.LinkCount(),
			ProgressPercent: j.ProgressPercent,
			ProgressMessage: j.ProgressMessage,
			CreatedAt:       j.CreatedAt,
			UpdatedAt:       j.UpdatedAt,
			Folder:          j.FolderRef,
		}
		if len(j.Errors) > 0 {
			summary.LastError = j.Errors[len(j.Errors)-1]
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func statusMatches(status job.Status, filters []job.Status) bool {
	for _, f := range filters {
		if status == f {
			return true
		}
	}
	return false
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job's links, artifacts, and errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			j, err := jobStore.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Job "+j.ID, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Status", jobStatusKind(j.Status), string(j.Status), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Folder", statusInfo, j.FolderRef, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Created", statusInfo, j.CreatedAt.Local().Format(time.RFC1123), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Progress", statusInfo,
				fmt.Sprintf("%d%% %s", j.ProgressPercent, j.ProgressMessage), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Min images", statusInfo, strconv.Itoa(j.Settings.MinImages), colorize))
			fmt.Fprintln(stdout, renderStatusLine("GPU", statusInfo, yesNo(j.Settings.UseGPU), colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Links", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := make([][]string, 0, len(j.Links))
			for i, link := range j.Links {
				downloaded := "-"
				if media, ok := j.Artifacts.MediaFor(link.URL); ok {
					downloaded = media.Path
				}
				transcript := "-"
				if path, ok := j.Artifacts.TranscriptFor(link.URL); ok {
					transcript = path
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					truncate(link.URL, 48),
					yesNo(link.WantTranscript),
					yesNo(link.WantImages),
					truncate(downloaded, 32),
					truncate(transcript, 32),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"#", "URL", "SRT", "Images", "Media", "Transcript"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Artifacts", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Images", statusInfo, strconv.Itoa(len(j.Artifacts.Images)), colorize))
			renders := j.Artifacts.Render
			fmt.Fprintln(stdout, renderStatusLine("Landscape", renderKind(renders.Landscape), orDash(renders.Landscape), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Portrait", renderKind(renders.Portrait), orDash(renders.Portrait), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Montage", renderKind(renders.Montage), orDash(renders.Montage), colorize))

			if len(j.Errors) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Errors", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, msg := range j.Errors {
					fmt.Fprintln(stdout, renderStatusLine("Error", statusError, msg, colorize))
				}
			}
			return nil
		},
	}
}

func newJobsDeleteCommand(ctx *commandContext) *cobra.Command {
	var keepArtifacts bool

	cmd := &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job and, by default, its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobStore, err := ctx.openStore()
			if err != nil {
				return err
			}
			j, err := jobStore.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if err := jobStore.Delete(cmd.Context(), j.FolderRef, !keepArtifacts); err != nil {
				return err
			}
			if keepArtifacts {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s (artifacts kept in %s)\n", j.ID, j.FolderRef)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", j.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "Remove only the job record, leaving files in place")
	return cmd
}

func jobStatusKind(status job.Status) statusKind {
	switch status {
	case job.StatusDone:
		return statusOK
	case job.StatusError:
		return statusError
	case job.StatusPaused:
		return statusWarn
	default:
		return statusInfo
	}
}

func renderKind(path string) statusKind {
	if path == "" {
		return statusWarn
	}
	return statusOK
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
