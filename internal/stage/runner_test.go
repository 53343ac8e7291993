package stage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
	"github.com/michaeldiestelberg/podcast-insights/internal/testsupport"
)

func newTestRunner(t *testing.T, cfg *config.Config, store *ledger.Store) *Runner {
	t.Helper()
	return NewRunner(cfg, store, logging.NewNop())
}

func seedAt(t *testing.T, cfg *config.Config, store *ledger.Store, status ledger.Status) *ledger.Episode {
	t.Helper()
	feed := testsupport.SeedFeed(t, store, cfg.Feeds[0].URL, "Example")
	ep := testsupport.SeedEpisode(t, store, cfg, feed, "guid-1",
		"https://cdn.example.com/a.mp3", "Episode One",
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	path := []ledger.Status{
		ledger.StatusDownloading, ledger.StatusDownloaded,
		ledger.StatusTranscribing, ledger.StatusTranscribed,
		ledger.StatusAnalyzing, ledger.StatusDone,
	}
	for _, step := range path {
		if ep.Status == status {
			break
		}
		advanced, err := store.SetStatus(context.Background(), ep.ID, step)
		if err != nil {
			t.Fatalf("advance to %s: %v", step, err)
		}
		ep = advanced
	}
	if ep.Status != status {
		t.Fatalf("seed status = %s, want %s", ep.Status, status)
	}
	return ep
}

func TestRunSkipsAndHealsFromExistingArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ep := seedAt(t, cfg, store, ledger.StatusNew)
	testsupport.WriteFile(t, ep.AudioPath, 64)

	runner := newTestRunner(t, cfg, store)
	healed, skipped, err := runner.Run(context.Background(), ep, Download)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !skipped {
		t.Fatal("existing artifact should skip the stage")
	}
	if healed.Status != ledger.StatusDownloaded {
		t.Fatalf("status not healed forward: %s", healed.Status)
	}
}

func TestRunToolStageCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ep := seedAt(t, cfg, store, ledger.StatusDownloaded)

	runner := newTestRunner(t, cfg, store)
	runner.runCommand = func(_ context.Context, _ string) ([]byte, error) {
		testsupport.WriteFile(t, ep.TranscriptPath, 128)
		return []byte("ok"), nil
	}

	done, skipped, err := runner.Run(context.Background(), ep, Transcribe)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if skipped {
		t.Fatal("stage should have executed")
	}
	if done.Status != ledger.StatusTranscribed {
		t.Fatalf("status = %s, want transcribed", done.Status)
	}
}

func TestRunToolFailureRollsBackWithRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Runtime.MaxRetries = 3
	store := testsupport.MustOpenStore(t, cfg)
	ep := seedAt(t, cfg, store, ledger.StatusDownloaded)

	calls := 0
	runner := newTestRunner(t, cfg, store)
	runner.runCommand = func(_ context.Context, _ string) ([]byte, error) {
		calls++
		return []byte("model crashed"), errors.New("exit status 1")
	}

	failed, _, err := runner.Run(context.Background(), ep, Transcribe)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want external tool marker", err)
	}
	if calls != 3 {
		t.Fatalf("attempts = %d, want 3", calls)
	}
	if failed.Status != ledger.StatusDownloaded {
		t.Fatalf("failure should roll back to downloaded, got %s", failed.Status)
	}
	if failed.FailureAttempts != 3 || failed.FailureReason == "" {
		t.Fatalf("failure metadata missing: %+v", failed)
	}
}

func TestRunVerifiesArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Runtime.MaxRetries = 1
	store := testsupport.MustOpenStore(t, cfg)
	ep := seedAt(t, cfg, store, ledger.StatusTranscribed)

	runner := newTestRunner(t, cfg, store)
	runner.runCommand = func(_ context.Context, _ string) ([]byte, error) {
		// Tool claims success but writes nothing.
		return nil, nil
	}

	failed, _, err := runner.Run(context.Background(), ep, Insights)
	if !errors.Is(err, services.ErrVerification) {
		t.Fatalf("error = %v, want verification marker", err)
	}
	if failed.Status != ledger.StatusTranscribed {
		t.Fatalf("verification failure should roll back, got %s", failed.Status)
	}
}

func TestRunDownloadStreamsToFinalPath(t *testing.T) {
	payload := make([]byte, 2048)
	for i := range payload {
		payload[i] = byte(i)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	feed := testsupport.SeedFeed(t, store, cfg.Feeds[0].URL, "Example")
	ep := testsupport.SeedEpisode(t, store, cfg, feed, "guid-dl", server.URL+"/a.mp3", "Download Me",
		time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))

	runner := newTestRunner(t, cfg, store)
	done, skipped, err := runner.Run(context.Background(), ep, Download)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if skipped {
		t.Fatal("download should have executed")
	}
	if done.Status != ledger.StatusDownloaded {
		t.Fatalf("status = %s", done.Status)
	}
	data, err := os.ReadFile(ep.AudioPath)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("audio size = %d, want %d", len(data), len(payload))
	}
}

func TestRunDownloadRejectsTruncatedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write(make([]byte, 512))
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Runtime.MaxRetries = 1
	store := testsupport.MustOpenStore(t, cfg)
	feed := testsupport.SeedFeed(t, store, cfg.Feeds[0].URL, "Example")
	ep := testsupport.SeedEpisode(t, store, cfg, feed, "guid-trunc", server.URL+"/a.mp3", "Truncated",
		time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC))

	runner := newTestRunner(t, cfg, store)
	failed, _, err := runner.Run(context.Background(), ep, Download)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("error = %v, want network marker", err)
	}
	if failed.Status != ledger.StatusNew {
		t.Fatalf("truncated download should roll back to new, got %s", failed.Status)
	}
	if _, statErr := os.Stat(ep.AudioPath); !os.IsNotExist(statErr) {
		t.Fatal("partial download must not land at the final path")
	}
}
