package config

const (
	defaultDataDir             = "~/.local/share/podcast-insights/data"
	defaultTempDir             = "~/.local/share/podcast-insights/data/_tmp"
	defaultLogDir              = "~/.local/share/podcast-insights/logs"
	defaultMaxRetries          = 3
	defaultRetryBackoffSeconds = 5
	defaultPollIntervalMinutes = 30
	defaultMaxNewPerFeed       = 1
	defaultMinArtifactBytes    = 1
	defaultMinFreeSpaceMiB     = 512
	defaultInsightsModel       = "gpt-5-mini"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Storage: Storage{
			DataDir: defaultDataDir,
			TempDir: defaultTempDir,
			LogDir:  defaultLogDir,
		},
		Runtime: Runtime{
			MaxRetries:          defaultMaxRetries,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
			PollIntervalMinutes: defaultPollIntervalMinutes,
			MaxNewPerFeed:       defaultMaxNewPerFeed,
			MinArtifactBytes:    defaultMinArtifactBytes,
			MinFreeSpaceMiB:     defaultMinFreeSpaceMiB,
		},
		Tools: Tools{
			Model: defaultInsightsModel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
