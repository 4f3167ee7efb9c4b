package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateGuard(); err != nil {
		return err
	}
	if err := c.validateEstimator(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireOutputRoot rejects operations that need a job store before one is
// configured. Submission must fail here, before any job record is created.
func (c *Config) RequireOutputRoot() error {
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelsmith/config.toml"
		}
		return fmt.Errorf("paths.output_root is not set; edit %s (create with 'reelsmith config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateStages() error {
	for name, command := range map[string]string{
		"stages.download_command":   c.Stages.DownloadCommand,
		"stages.transcribe_command": c.Stages.TranscribeCommand,
		"stages.scrape_command":     c.Stages.ScrapeCommand,
		"stages.render_command":     c.Stages.RenderCommand,
	} {
		if strings.TrimSpace(command) == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	if c.Stages.MinImages < 0 {
		return errors.New("stages.min_images must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollInterval <= 0 {
		return errors.New("workflow.poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	if c.Workflow.GuardPollInterval <= 0 {
		return errors.New("workflow.guard_poll_interval must be positive")
	}
	if c.Workflow.JobTimeoutMinutes <= 0 {
		return errors.New("workflow.job_timeout_minutes must be positive")
	}
	return nil
}

func (c *Config) validateGuard() error {
	if c.Guard.MinDiskFreeGB < 0 || c.Guard.MinMemoryFreeGB < 0 {
		return errors.New("guard thresholds must not be negative")
	}
	if c.Guard.MaxCPUPercent <= 0 || c.Guard.MaxCPUPercent > 100 {
		return errors.New("guard.max_cpu_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateEstimator() error {
	est := c.Estimator
	for name, value := range map[string]float64{
		"estimator.download_per_link":   est.DownloadPerLink,
		"estimator.transcribe_per_link": est.TranscribePerLink,
		"estimator.scrape_per_image":    est.ScrapePerImage,
		"estimator.render_base":         est.RenderBase,
		"estimator.render_per_image":    est.RenderPerImage,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if est.RenderMin > est.RenderMax {
		return errors.New("estimator.render_min must not exceed estimator.render_max")
	}
	if est.HistoryTolerance < 0 {
		return errors.New("estimator.history_link_tolerance must not be negative")
	}
	if est.HistoryRetainCount <= 0 {
		return errors.New("estimator.history_retain_count must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
