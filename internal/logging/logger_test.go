package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("poll complete", logging.Int("new_episodes", 2), logging.String("feed", "Example Feed"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO poll complete") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "new_episodes=2") {
		t.Fatalf("expected attr in log line: %q", line)
	}
	if !strings.Contains(line, `feed="Example Feed"`) {
		t.Fatalf("expected quoted attr value in log line: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "dropped") {
		t.Fatal("info line should have been filtered")
	}
	if !strings.Contains(string(data), "kept") {
		t.Fatal("warn line missing")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	base, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := services.WithEpisodeID(context.Background(), 42)
	ctx = services.WithStage(ctx, "transcribe")
	logger := logging.WithContext(ctx, base)
	logger.Info("stage started")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "episode_id=42") || !strings.Contains(line, "stage=transcribe") {
		t.Fatalf("expected context fields in log line: %q", line)
	}
}
