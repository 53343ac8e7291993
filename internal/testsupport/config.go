package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = filepath.Join(base, "data")
	cfg.Storage.TempDir = filepath.Join(base, "tmp")
	cfg.Storage.LogDir = filepath.Join(base, "logs")
	cfg.Runtime.RetryBackoffSeconds = 0
	cfg.Tools.TranscribeCmd = "true {audio} {transcript}"
	cfg.Tools.InsightsCmd = "true {transcript} {insights_file}"
	cfg.Feeds = []config.Feed{
		{URL: "https://example.com/feed.xml", Name: "Example Podcast"},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithFeeds replaces the subscribed feeds on the test config.
func WithFeeds(feeds ...config.Feed) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Feeds = feeds
	}
}

// WithTools overrides the stage command templates on the test config.
func WithTools(transcribeCmd, insightsCmd string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tools.TranscribeCmd = transcribeCmd
		cfg.Tools.InsightsCmd = insightsCmd
	}
}
