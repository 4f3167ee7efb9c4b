package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and intervals short enough for test loops. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputRoot = filepath.Join(base, "jobs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Workflow.PollInterval = 1
	cfgVal.Workflow.ErrorRetryInterval = 1
	cfgVal.Workflow.GuardPollInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStageScripts writes a shell script per stage and points the stage
// commands at them. Each body runs with the job folder as its working
// directory.
func WithStageScripts(bodies map[string]string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		write := func(name, body string) string {
			target := filepath.Join(binDir, name+".sh")
			script := "#!/bin/sh\n" + body + "\n"
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stage script %s: %v", name, err)
			}
			return target
		}
		for stage, body := range bodies {
			path := write(stage, body)
			switch stage {
			case "download":
				b.cfg.Stages.DownloadCommand = path
			case "transcribe":
				b.cfg.Stages.TranscribeCommand = path
			case "scrape_images":
				b.cfg.Stages.ScrapeCommand = path
			case "render":
				b.cfg.Stages.RenderCommand = path
			default:
				b.t.Fatalf("unknown stage script %q", stage)
			}
		}
	}
}

// WithMinImages overrides the image threshold frozen into new jobs.
func WithMinImages(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Stages.MinImages = n
	}
}

// WithGuardEnforcement flips the system guard into blocking mode.
func WithGuardEnforcement() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Guard.Enforce = true
	}
}
