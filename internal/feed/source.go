package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

const userAgent = "podcast-insights/1.0"

// maxFeedBytes caps how much of a feed document is read into memory.
const maxFeedBytes = 16 << 20

// Snapshot is the outcome of one conditional feed fetch.
type Snapshot struct {
	Unchanged    bool
	Title        string
	ETag         string
	LastModified string
	Entries      []Entry
}

// Source fetches feed documents. The etag and lastModified arguments carry the
// validators from the previous successful fetch so servers can answer 304.
type Source interface {
	Fetch(ctx context.Context, url, etag, lastModified string) (*Snapshot, error)
}

// HTTPSource fetches feeds over HTTP with conditional requests and a polite
// request rate across feeds.
type HTTPSource struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource builds a source with sane timeouts and a one request per
// second pacing limit.
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Fetch performs a conditional GET of the feed URL.
func (s *HTTPSource) Fetch(ctx context.Context, url, etag, lastModified string) (*Snapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "poll", "build request", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "poll", "fetch feed", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &Snapshot{Unchanged: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrNetwork, "poll", "fetch feed",
			fmt.Sprintf("%s returned HTTP %d", url, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "poll", "read feed", url, err)
	}

	title, entries, err := Parse(body)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "poll", "parse feed", url, err)
	}

	return &Snapshot{
		Title:        title,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Entries:      entries,
	}, nil
}
