package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// TranscribePlaceholders is the whitelist of tokens recognized in tools.transcribe_cmd.
var TranscribePlaceholders = []string{"audio", "transcript"}

// InsightsPlaceholders is the whitelist of tokens recognized in tools.insights_cmd.
var InsightsPlaceholders = []string{"transcript", "episode_dir", "insights_file", "model"}

var placeholderRE = regexp.MustCompile(`\{([^{}]*)\}`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateFeeds()
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return errors.New("storage.data_dir must be set")
	}
	if strings.TrimSpace(c.Storage.TempDir) == "" {
		return errors.New("storage.temp_dir must be set")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.TranscribeCmd == "" {
		return errors.New("tools.transcribe_cmd must be set (create a config with 'podcast-insights config init')")
	}
	if err := ValidateTemplate(c.Tools.TranscribeCmd, TranscribePlaceholders); err != nil {
		return fmt.Errorf("tools.transcribe_cmd: %w", err)
	}
	if c.Tools.InsightsCmd == "" {
		return errors.New("tools.insights_cmd must be set (create a config with 'podcast-insights config init')")
	}
	if err := ValidateTemplate(c.Tools.InsightsCmd, InsightsPlaceholders); err != nil {
		return fmt.Errorf("tools.insights_cmd: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	for i, feed := range c.Feeds {
		if !strings.HasPrefix(feed.URL, "http://") && !strings.HasPrefix(feed.URL, "https://") {
			return fmt.Errorf("feeds[%d].url %q must be an http(s) URL", i, feed.URL)
		}
	}
	return nil
}

// ValidateTemplate checks that every {token} in a command template is drawn
// from the allowed whitelist. Unknown placeholders are rejected at load time
// rather than at invocation time.
func ValidateTemplate(template string, allowed []string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, token := range allowed {
		allowedSet[token] = struct{}{}
	}
	for _, match := range placeholderRE.FindAllStringSubmatch(template, -1) {
		token := match[1]
		if _, ok := allowedSet[token]; !ok {
			return fmt.Errorf("unknown placeholder {%s} (recognized: {%s})", token, strings.Join(allowed, "}, {"))
		}
	}
	return nil
}
