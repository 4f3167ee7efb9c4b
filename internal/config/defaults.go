package config

const (
	defaultLogDir             = "~/.local/share/reelsmith/logs"
	defaultDownloadCommand    = "reelsmith-download"
	defaultTranscribeCommand  = "reelsmith-transcribe"
	defaultScrapeCommand      = "reelsmith-scrape"
	defaultRenderCommand      = "reelsmith-render"
	defaultMinImages          = 15
	defaultWhisperModel       = "base"
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultGuardPollInterval  = 2
	defaultJobTimeoutMinutes  = 45
	defaultMinDiskFreeGB      = 5.0
	defaultMinMemoryFreeGB    = 2.0
	defaultMaxCPUPercent      = 90.0
	defaultHistoryTolerance   = 2
	defaultHistoryRetainCount = 20
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Stages: Stages{
			DownloadCommand:   defaultDownloadCommand,
			TranscribeCommand: defaultTranscribeCommand,
			ScrapeCommand:     defaultScrapeCommand,
			RenderCommand:     defaultRenderCommand,
			MinImages:         defaultMinImages,
			WhisperModel:      defaultWhisperModel,
			UseGPU:            true,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			GuardPollInterval:  defaultGuardPollInterval,
			JobTimeoutMinutes:  defaultJobTimeoutMinutes,
		},
		Guard: Guard{
			MinDiskFreeGB:   defaultMinDiskFreeGB,
			MinMemoryFreeGB: defaultMinMemoryFreeGB,
			MaxCPUPercent:   defaultMaxCPUPercent,
		},
		Estimator: Estimator{
			DownloadPerLink:    2,
			TranscribePerLink:  3,
			ScrapePerImage:     0.5,
			RenderBase:         5,
			RenderPerImage:     0.25,
			RenderMin:          5,
			RenderMax:          20,
			HistoryTolerance:   defaultHistoryTolerance,
			HistoryRetainCount: defaultHistoryRetainCount,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobComplete:    true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
