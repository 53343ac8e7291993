package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/feed"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/testsupport"
)

type fakeSource struct {
	snapshots map[string]*feed.Snapshot
	calls     int
}

func (f *fakeSource) Fetch(_ context.Context, url, _, _ string) (*feed.Snapshot, error) {
	f.calls++
	snap, ok := f.snapshots[url]
	if !ok {
		return &feed.Snapshot{Unchanged: true}, nil
	}
	return snap, nil
}

func entriesFixture(n int) []feed.Entry {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := make([]feed.Entry, 0, n)
	for i := n - 1; i >= 0; i-- {
		entries = append(entries, feed.Entry{
			Title:    "Episode " + string(rune('A'+i)),
			GUID:     "guid-" + string(rune('a'+i)),
			AudioURL: "https://cdn.example.com/" + string(rune('a'+i)) + ".mp3",
			PubDate:  base.AddDate(0, 0, i),
		})
	}
	return entries
}

func TestPollAllAdmitsCappedEpisodes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Runtime.MaxNewPerFeed = 2
	store := testsupport.MustOpenStore(t, cfg)

	source := &fakeSource{snapshots: map[string]*feed.Snapshot{
		cfg.Feeds[0].URL: {
			Title:        "Example Podcast",
			ETag:         `W/"v1"`,
			LastModified: "Tue, 10 Mar 2026 00:00:00 GMT",
			Entries:      entriesFixture(5),
		},
	}}

	poller := feed.NewPoller(cfg, store, source, logging.NewNop())
	results, err := poller.PollAll(context.Background())
	if err != nil {
		t.Fatalf("PollAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("result count = %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("poll error: %v", results[0].Err)
	}
	if results[0].NewEpisodes != 2 {
		t.Fatalf("admitted = %d, want cap of 2", results[0].NewEpisodes)
	}

	feedRow, err := store.FeedByURL(context.Background(), cfg.Feeds[0].URL)
	if err != nil || feedRow == nil {
		t.Fatalf("feed not registered: %v", err)
	}
	if feedRow.Name != "Example Podcast" {
		t.Fatalf("feed name should fall back to channel title: %q", feedRow.Name)
	}
	if feedRow.ETag != `W/"v1"` {
		t.Fatalf("validators not recorded: %+v", feedRow)
	}

	// Only the two newest entries were admitted.
	episodes, err := store.EpisodesByFeed(context.Background(), feedRow.ID, 0, 10)
	if err != nil {
		t.Fatalf("EpisodesByFeed: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("ledger episode count = %d", len(episodes))
	}
	if episodes[0].Title != "Episode E" || episodes[1].Title != "Episode D" {
		t.Fatalf("wrong entries admitted: %q, %q", episodes[0].Title, episodes[1].Title)
	}
}

func TestPollAllIdempotentAcrossRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Runtime.MaxNewPerFeed = 0
	store := testsupport.MustOpenStore(t, cfg)

	source := &fakeSource{snapshots: map[string]*feed.Snapshot{
		cfg.Feeds[0].URL: {Title: "Example Podcast", Entries: entriesFixture(3)},
	}}
	poller := feed.NewPoller(cfg, store, source, logging.NewNop())

	first, err := poller.PollAll(context.Background())
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if first[0].NewEpisodes != 3 {
		t.Fatalf("first poll admitted %d", first[0].NewEpisodes)
	}

	second, err := poller.PollAll(context.Background())
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if second[0].NewEpisodes != 0 {
		t.Fatalf("second poll admitted %d, want 0", second[0].NewEpisodes)
	}
}

func TestPollAllUnchangedFeed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedFeed(t, store, cfg.Feeds[0].URL, "Example")

	source := &fakeSource{}
	poller := feed.NewPoller(cfg, store, source, logging.NewNop())
	results, err := poller.PollAll(context.Background())
	if err != nil {
		t.Fatalf("PollAll: %v", err)
	}
	if !results[0].Unchanged || results[0].Err != nil {
		t.Fatalf("expected clean unchanged result: %+v", results[0])
	}
}

func TestHTTPSourceConditionalFetch(t *testing.T) {
	const etag = `W/"snapshot-1"`
	const lastModified = "Tue, 10 Mar 2026 00:00:00 GMT"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Last-Modified", lastModified)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	source := feed.NewHTTPSource()
	ctx := context.Background()

	snap, err := source.Fetch(ctx, server.URL, "", "")
	if err != nil {
		t.Fatalf("initial fetch: %v", err)
	}
	if snap.Unchanged {
		t.Fatal("initial fetch reported unchanged")
	}
	if snap.ETag != etag || snap.LastModified != lastModified {
		t.Fatalf("validators not captured: %+v", snap)
	}
	if len(snap.Entries) == 0 {
		t.Fatal("entries not parsed")
	}

	again, err := source.Fetch(ctx, server.URL, snap.ETag, snap.LastModified)
	if err != nil {
		t.Fatalf("conditional fetch: %v", err)
	}
	if !again.Unchanged {
		t.Fatal("304 should report unchanged")
	}
}

func TestHTTPSourceErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := feed.NewHTTPSource().Fetch(context.Background(), server.URL, "", ""); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}
