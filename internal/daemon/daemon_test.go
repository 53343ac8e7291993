package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/daemon"
	"github.com/michaeldiestelberg/podcast-insights/internal/feed"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
	"github.com/michaeldiestelberg/podcast-insights/internal/testsupport"
	"github.com/michaeldiestelberg/podcast-insights/internal/workflow"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := daemon.Acquire(cfg)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Unlock()

	if _, err := daemon.Acquire(cfg); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("second Acquire = %v, want busy", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	third, err := daemon.Acquire(cfg)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = third.Unlock()
}

type staticSource struct {
	snapshot *feed.Snapshot
}

func (s *staticSource) Fetch(context.Context, string, string, string) (*feed.Snapshot, error) {
	return s.snapshot, nil
}

func TestCyclePollsAndProcesses(t *testing.T) {
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 256))
	}))
	defer audio.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithTools(
		"cp {audio} {transcript}",
		"cp {transcript} {insights_file}",
	))
	cfg.Runtime.MaxNewPerFeed = 0
	store := testsupport.MustOpenStore(t, cfg)

	source := &staticSource{snapshot: &feed.Snapshot{
		Title: "Example Podcast",
		Entries: []feed.Entry{{
			Title:    "Episode One",
			GUID:     "guid-1",
			AudioURL: audio.URL + "/one.mp3",
			PubDate:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		}},
	}}
	poller := feed.NewPoller(cfg, store, source, logging.NewNop())
	manager := workflow.NewManager(cfg, store, logging.NewNop())

	d, err := daemon.New(cfg, store, poller, manager, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	feedRow, err := store.FeedByURL(context.Background(), cfg.Feeds[0].URL)
	if err != nil || feedRow == nil {
		t.Fatalf("feed missing after cycle: %v", err)
	}
	episodes, err := store.EpisodesByFeed(context.Background(), feedRow.ID, 0, 10)
	if err != nil {
		t.Fatalf("EpisodesByFeed: %v", err)
	}
	if len(episodes) != 1 {
		t.Fatalf("episode count = %d", len(episodes))
	}
	if episodes[0].Status != ledger.StatusDone {
		t.Fatalf("episode status = %s, want done", episodes[0].Status)
	}

	// A second cycle finds nothing new and changes nothing.
	if err := d.Cycle(context.Background()); err != nil {
		t.Fatalf("second Cycle: %v", err)
	}
	counts, err := store.CountsByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountsByStatus: %v", err)
	}
	if counts[ledger.StatusDone] != 1 {
		t.Fatalf("counts after second cycle: %+v", counts)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFeeds())
	store := testsupport.MustOpenStore(t, cfg)
	poller := feed.NewPoller(cfg, store, &staticSource{snapshot: &feed.Snapshot{Unchanged: true}}, logging.NewNop())
	manager := workflow.NewManager(cfg, store, logging.NewNop())

	d, err := daemon.New(cfg, store, poller, manager, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
