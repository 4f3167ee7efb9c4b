package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// OutputRoot is the directory holding one folder per job. Jobs cannot be
	// submitted until it is set.
	OutputRoot string `toml:"output_root"`
	LogDir     string `toml:"log_dir"`
	SoundsDir  string `toml:"sounds_dir"`
}

// Stages contains the external executor command for each pipeline stage and
// the settings frozen into a job's snapshot at creation.
type Stages struct {
	DownloadCommand   string `toml:"download_command"`
	TranscribeCommand string `toml:"transcribe_command"`
	ScrapeCommand     string `toml:"scrape_command"`
	RenderCommand     string `toml:"render_command"`
	MinImages         int    `toml:"min_images"`
	WhisperModel      string `toml:"whisper_model"`
	UseGPU            bool   `toml:"use_gpu"`
}

// Workflow contains orchestrator timing and intervals.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	GuardPollInterval  int `toml:"guard_poll_interval"`
	JobTimeoutMinutes  int `toml:"job_timeout_minutes"`
}

// Guard contains system resource thresholds for the admission check.
type Guard struct {
	MinDiskFreeGB   float64 `toml:"min_disk_free_gb"`
	MinMemoryFreeGB float64 `toml:"min_memory_free_gb"`
	MaxCPUPercent   float64 `toml:"max_cpu_percent"`
	// Enforce turns the advisory check into a hard admission gate. The
	// default mirrors the soft-gate policy of the original application.
	Enforce bool `toml:"enforce"`
}

// Estimator contains the static cost model constants, in minutes.
type Estimator struct {
	DownloadPerLink    float64 `toml:"download_per_link"`
	TranscribePerLink  float64 `toml:"transcribe_per_link"`
	ScrapePerImage     float64 `toml:"scrape_per_image"`
	RenderBase         float64 `toml:"render_base"`
	RenderPerImage     float64 `toml:"render_per_image"`
	RenderMin          float64 `toml:"render_min"`
	RenderMax          float64 `toml:"render_max"`
	HistoryTolerance   int     `toml:"history_link_tolerance"`
	HistoryRetainCount int     `toml:"history_retain_count"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobComplete    bool   `toml:"job_complete"`
	JobFailed      bool   `toml:"job_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Stages        Stages        `toml:"stages"`
	Workflow      Workflow      `toml:"workflow"`
	Guard         Guard         `toml:"guard"`
	Estimator     Estimator     `toml:"estimator"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.OutputRoot, &c.Paths.LogDir, &c.Paths.SoundsDir} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates required directories for daemon operation. The
// output root is created on a best-effort basis so the daemon can start while
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	if c.Paths.LogDir != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputRoot) != "" {
		_ = os.MkdirAll(c.Paths.OutputRoot, 0o755)
	}
	return nil
}

// HistoryDBPath returns the path of the completed-job metrics database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// StageCommand returns the configured executor command for a stage name.
func (c *Config) StageCommand(stage string) string {
	switch stage {
	case "download":
		return c.Stages.DownloadCommand
	case "transcribe":
		return c.Stages.TranscribeCommand
	case "scrape_images":
		return c.Stages.ScrapeCommand
	case "render":
		return c.Stages.RenderCommand
	default:
		return ""
	}
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
