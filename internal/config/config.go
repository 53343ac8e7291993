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

// Storage contains directory configuration for the on-disk layout.
type Storage struct {
	DataDir string `toml:"data_dir"`
	TempDir string `toml:"temp_dir"`
	LogDir  string `toml:"log_dir"`
}

// Runtime contains retry, polling, and validity thresholds for processing.
type Runtime struct {
	MaxRetries          int   `toml:"max_retries"`
	RetryBackoffSeconds int   `toml:"retry_backoff_seconds"`
	PollIntervalMinutes int   `toml:"poll_interval_minutes"`
	MaxNewPerFeed       int   `toml:"max_new_per_feed"`
	MinArtifactBytes    int64 `toml:"min_artifact_bytes"`
	MinFreeSpaceMiB     int64 `toml:"min_free_space_mib"`
}

// Tools contains the templated external commands invoked per stage.
//
// Templates use {token} placeholders substituted at invocation time:
//   - transcribe_cmd: {audio}, {transcript}
//   - insights_cmd: {transcript}, {episode_dir}, {insights_file}, {model}
type Tools struct {
	TranscribeCmd string `toml:"transcribe_cmd"`
	InsightsCmd   string `toml:"insights_cmd"`
	Model         string `toml:"model"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Feed identifies one subscribed podcast feed.
type Feed struct {
	URL  string `toml:"url"`
	Name string `toml:"name"`
}

// Config encapsulates all configuration values for podcast-insights.
//
// Configuration sections by subsystem:
//   - Storage: data, temp, and log directories
//   - Runtime: retry policy, poll interval, artifact validity thresholds
//   - Tools: templated transcription and insight-extraction commands
//   - Logging: log format and level
//   - Notifications: optional ntfy push notification settings
//   - Feeds: subscribed podcast feeds
type Config struct {
	Storage       Storage       `toml:"storage"`
	Runtime       Runtime       `toml:"runtime"`
	Tools         Tools         `toml:"tools"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Feeds         []Feed        `toml:"feeds"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podcast-insights/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved config path, the third reports whether the file existed.
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
		_, err = os.Stat(expanded)
		if err != nil {
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

	projectPath, err := filepath.Abs("podcast-insights.toml")
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

// EnsureDirectories creates the directories processing depends on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDir, c.Storage.TempDir, c.Storage.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the path of the lock file guarding processing runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Storage.DataDir, "podcast-insights.lock")
}

// WriteSample writes the embedded sample configuration to path. It refuses to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
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
