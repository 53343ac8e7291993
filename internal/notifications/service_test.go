package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), 3, 0, time.Minute); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newCaptureServer(t *testing.T, sink *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		sink.title = r.Header.Get("Title")
		sink.message = string(body)
		sink.tags = r.Header.Get("Tags")
		sink.priority = r.Header.Get("Priority")
		w.WriteHeader(http.StatusOK)
	}))
}

func newNtfyService(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	return notifications.NewService(&cfg)
}

func TestNtfyEpisodeCompleted(t *testing.T) {
	var got captured
	server := newCaptureServer(t, &got)
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	if err := svc.NotifyEpisodeCompleted(context.Background(), "Example Podcast", "Episode One"); err != nil {
		t.Fatalf("NotifyEpisodeCompleted: %v", err)
	}
	if got.title != "Podcast Insights - Episode Ready" {
		t.Fatalf("title = %q", got.title)
	}
	if got.message != "Insights ready: Example Podcast - Episode One" {
		t.Fatalf("message = %q", got.message)
	}
	if got.tags != "podcast-insights,episode,completed" {
		t.Fatalf("tags = %q", got.tags)
	}
}

func TestNtfyEpisodeFailedUsesHighPriority(t *testing.T) {
	var got captured
	server := newCaptureServer(t, &got)
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	if err := svc.NotifyEpisodeFailed(context.Background(), "Example Podcast", "Episode One", errors.New("tool exited 1")); err != nil {
		t.Fatalf("NotifyEpisodeFailed: %v", err)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q", got.priority)
	}
	if got.message != "Failed: Example Podcast - Episode One (tool exited 1)" {
		t.Fatalf("message = %q", got.message)
	}
}

func TestNtfyRunCompleted(t *testing.T) {
	var got captured
	server := newCaptureServer(t, &got)
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	if err := svc.NotifyRunCompleted(context.Background(), 4, 1, 90*time.Second); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if got.message != "Processed 4 episode(s), 1 failed in 1m30s" {
		t.Fatalf("message = %q", got.message)
	}
	if got.priority != "high" {
		t.Fatalf("failed run should escalate priority, got %q", got.priority)
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for rejected notification")
	}
}
