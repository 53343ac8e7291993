package feed

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/textutil"
)

// Poller checks subscribed feeds for new episodes and admits them into the ledger.
type Poller struct {
	cfg    *config.Config
	store  *ledger.Store
	source Source
	logger *slog.Logger
}

// Result summarizes one feed poll.
type Result struct {
	FeedID      int64
	Name        string
	URL         string
	NewEpisodes int
	Unchanged   bool
	Err         error
}

// NewPoller wires a poller against the configured feeds.
func NewPoller(cfg *config.Config, store *ledger.Store, source Source, logger *slog.Logger) *Poller {
	if source == nil {
		source = NewHTTPSource()
	}
	return &Poller{
		cfg:    cfg,
		store:  store,
		source: source,
		logger: logging.NewComponentLogger(logger, "poller"),
	}
}

// PollAll checks every configured feed once. A failing feed does not abort the
// sweep; its error is carried in the corresponding result.
func (p *Poller) PollAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(p.cfg.Feeds))
	for _, feedCfg := range p.cfg.Feeds {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := p.pollFeed(ctx, feedCfg)
		if result.Err != nil {
			p.logger.Warn("feed poll failed",
				logging.String(logging.FieldFeed, result.URL),
				logging.Error(result.Err))
		} else if result.Unchanged {
			p.logger.Debug("feed unchanged", logging.String(logging.FieldFeed, result.URL))
		} else {
			p.logger.Info("feed polled",
				logging.String(logging.FieldFeed, result.URL),
				logging.Int("new_episodes", result.NewEpisodes))
		}
		results = append(results, result)
	}
	return results, nil
}

func (p *Poller) pollFeed(ctx context.Context, feedCfg config.Feed) Result {
	result := Result{URL: feedCfg.URL, Name: feedCfg.Name}

	existing, err := p.store.FeedByURL(ctx, feedCfg.URL)
	if err != nil {
		result.Err = err
		return result
	}

	var etag, lastModified string
	if existing != nil {
		etag = existing.ETag
		lastModified = existing.LastModified
		result.FeedID = existing.ID
		result.Name = existing.Name
	}

	snapshot, err := p.source.Fetch(ctx, feedCfg.URL, etag, lastModified)
	if err != nil {
		result.Err = err
		return result
	}

	if snapshot.Unchanged {
		result.Unchanged = true
		if existing != nil {
			result.Err = p.store.RecordFeedResponse(ctx, existing.ID, "", "", true)
		}
		return result
	}

	name := feedName(feedCfg, snapshot.Title)
	feedRow, err := p.store.UpsertFeed(ctx, feedCfg.URL, name, textutil.Slug(name))
	if err != nil {
		result.Err = err
		return result
	}
	result.FeedID = feedRow.ID
	result.Name = feedRow.Name

	if err := p.store.RecordFeedResponse(ctx, feedRow.ID, snapshot.ETag, snapshot.LastModified, false); err != nil {
		result.Err = err
		return result
	}

	admitted, err := p.admitEntries(ctx, feedRow, snapshot.Entries)
	result.NewEpisodes = admitted
	result.Err = err
	return result
}

// admitEntries inserts unseen entries newest first, honoring the per-poll
// admission cap. Entries beyond the cap stay out of the ledger entirely so a
// later poll with a raised cap can still pick them up.
func (p *Poller) admitEntries(ctx context.Context, feedRow *ledger.Feed, entries []Entry) (int, error) {
	maxNew := p.cfg.Runtime.MaxNewPerFeed
	admitted := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return admitted, err
		}
		if maxNew > 0 && admitted >= maxNew {
			break
		}
		episode, created, err := p.upsertEntry(ctx, feedRow, entry)
		if err != nil {
			return admitted, err
		}
		if created {
			admitted++
			p.logger.Info("new episode",
				logging.String(logging.FieldFeed, feedRow.URL),
				logging.String("episode_key", episode.Key),
				logging.String("title", episode.Title))
		}
	}
	return admitted, nil
}

func (p *Poller) upsertEntry(ctx context.Context, feedRow *ledger.Feed, entry Entry) (*ledger.Episode, bool, error) {
	slug := textutil.Slug(entry.Title)
	paths := ledger.EpisodePaths(p.cfg.Storage.DataDir, feedRow.Slug, entry.PubDate, slug)
	return p.store.UpsertEpisode(ctx, &ledger.Episode{
		FeedID:         feedRow.ID,
		Key:            ledger.EpisodeKey(feedRow.URL, entry.GUID, entry.AudioURL),
		GUID:           entry.GUID,
		AudioURL:       entry.AudioURL,
		Title:          entry.Title,
		PubDate:        entry.PubDate,
		Slug:           slug,
		EpisodeDir:     paths.Dir,
		AudioPath:      paths.Audio,
		TranscriptPath: paths.Transcript,
		InsightsPath:   paths.Insights,
	})
}

func feedName(feedCfg config.Feed, channelTitle string) string {
	if name := strings.TrimSpace(feedCfg.Name); name != "" {
		return name
	}
	if title := strings.TrimSpace(channelTitle); title != "" {
		return title
	}
	if parsed, err := url.Parse(feedCfg.URL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return feedCfg.URL
}
