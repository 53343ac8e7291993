package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeRuntime()
	c.normalizeTools()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.normalizeFeeds()
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = defaultDataDir
	}
	if c.Storage.DataDir, err = expandPath(c.Storage.DataDir); err != nil {
		return fmt.Errorf("storage.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Storage.TempDir) == "" {
		c.Storage.TempDir = defaultTempDir
	}
	if c.Storage.TempDir, err = expandPath(c.Storage.TempDir); err != nil {
		return fmt.Errorf("storage.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Storage.LogDir) == "" {
		c.Storage.LogDir = defaultLogDir
	}
	if c.Storage.LogDir, err = expandPath(c.Storage.LogDir); err != nil {
		return fmt.Errorf("storage.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRuntime() {
	if c.Runtime.MaxRetries <= 0 {
		c.Runtime.MaxRetries = defaultMaxRetries
	}
	if c.Runtime.RetryBackoffSeconds <= 0 {
		c.Runtime.RetryBackoffSeconds = defaultRetryBackoffSeconds
	}
	if c.Runtime.PollIntervalMinutes <= 0 {
		c.Runtime.PollIntervalMinutes = defaultPollIntervalMinutes
	}
	if c.Runtime.MaxNewPerFeed < 0 {
		c.Runtime.MaxNewPerFeed = 0
	}
	if c.Runtime.MinArtifactBytes <= 0 {
		c.Runtime.MinArtifactBytes = defaultMinArtifactBytes
	}
	if c.Runtime.MinFreeSpaceMiB < 0 {
		c.Runtime.MinFreeSpaceMiB = 0
	}
}

func (c *Config) normalizeTools() {
	c.Tools.TranscribeCmd = strings.TrimSpace(c.Tools.TranscribeCmd)
	c.Tools.InsightsCmd = strings.TrimSpace(c.Tools.InsightsCmd)
	c.Tools.Model = strings.TrimSpace(c.Tools.Model)
	if c.Tools.Model == "" {
		c.Tools.Model = defaultInsightsModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeFeeds() {
	feeds := make([]Feed, 0, len(c.Feeds))
	seen := make(map[string]struct{}, len(c.Feeds))
	for _, feed := range c.Feeds {
		url := strings.TrimSpace(feed.URL)
		if url == "" {
			continue
		}
		if _, exists := seen[url]; exists {
			continue
		}
		seen[url] = struct{}{}
		feeds = append(feeds, Feed{URL: url, Name: strings.TrimSpace(feed.Name)})
	}
	c.Feeds = feeds
}
