package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/textutil"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedFeed registers a feed for tests using the provided store.
func SeedFeed(t testing.TB, store *ledger.Store, url, name string) *ledger.Feed {
	t.Helper()

	feed, err := store.UpsertFeed(context.Background(), url, name, textutil.Slug(name))
	if err != nil {
		t.Fatalf("store.UpsertFeed: %v", err)
	}
	return feed
}

// SeedEpisode inserts an episode for tests with paths computed under dataDir.
func SeedEpisode(t testing.TB, store *ledger.Store, cfg *config.Config, feed *ledger.Feed, guid, audioURL, title string, pubDate time.Time) *ledger.Episode {
	t.Helper()

	slug := textutil.Slug(title)
	paths := ledger.EpisodePaths(cfg.Storage.DataDir, feed.Slug, pubDate, slug)
	ep, _, err := store.UpsertEpisode(context.Background(), &ledger.Episode{
		FeedID:         feed.ID,
		Key:            ledger.EpisodeKey(feed.URL, guid, audioURL),
		GUID:           guid,
		AudioURL:       audioURL,
		Title:          title,
		PubDate:        pubDate,
		Slug:           slug,
		EpisodeDir:     paths.Dir,
		AudioPath:      paths.Audio,
		TranscriptPath: paths.Transcript,
		InsightsPath:   paths.Insights,
	})
	if err != nil {
		t.Fatalf("store.UpsertEpisode: %v", err)
	}
	return ep
}
