package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/daemon"
	"reelsmith/internal/job"
	"reelsmith/internal/linksfile"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var noTranscripts bool
	var noImages bool

	cmd := &cobra.Command{
		Use:   "submit [links-file | url...]",
		Short: "Submit a new compilation job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("provide a links file or at least one URL")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireOutputRoot(); err != nil {
				return err
			}

			links, err := gatherLinks(args, !noTranscripts, !noImages)
			if err != nil {
				return err
			}

			jobStore, err := ctx.openStore()
			if err != nil {
				return err
			}

			j := job.New(links, daemon.SnapshotSettings(cfg), time.Now())
			folder, err := jobStore.Create(cmd.Context(), j)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Submitted job %s with %d link(s)\n", j.ID, len(links))
			fmt.Fprintf(stdout, "Folder: %s\n", folder)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noTranscripts, "no-srt", false, "Skip transcription for URL arguments")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "Skip image scraping for URL arguments")
	return cmd
}

// gatherLinks accepts either a single links file path or a list of URLs.
func gatherLinks(args []string, wantTranscripts, wantImages bool) ([]job.Link, error) {
	if len(args) == 1 && !strings.Contains(args[0], "://") {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, fmt.Errorf("inspect %q: %w", args[0], err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%q is a directory, expected a links file", args[0])
		}
		return linksfile.ParseFile(args[0])
	}

	links := make([]job.Link, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if !strings.Contains(arg, "://") {
			return nil, fmt.Errorf("argument %q is not a URL", arg)
		}
		links = append(links, job.Link{
			URL:            arg,
			WantTranscript: wantTranscripts,
			WantImages:     wantImages,
		})
	}
	return links, nil
}
