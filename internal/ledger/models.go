package ledger

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// Status represents the lifecycle of an episode.
type Status string

const (
	StatusNew          Status = "new"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusAnalyzing    Status = "analyzing"
	StatusDone         Status = "done"
)

var allStatuses = []Status{
	StatusNew,
	StatusDownloading,
	StatusDownloaded,
	StatusTranscribing,
	StatusTranscribed,
	StatusAnalyzing,
	StatusDone,
}

// statusRanks orders the lifecycle. Status values only ever move toward
// higher ranks except when a transient stage rolls back to its floor.
var statusRanks = map[Status]int{
	StatusNew:          0,
	StatusDownloading:  1,
	StatusDownloaded:   2,
	StatusTranscribing: 3,
	StatusTranscribed:  4,
	StatusAnalyzing:    5,
	StatusDone:         6,
}

var transientStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusAnalyzing:    {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusRanks[normalized]
	return normalized, ok
}

// Rank returns the lifecycle position of a status. Unknown statuses rank -1.
func Rank(status Status) int {
	rank, ok := statusRanks[status]
	if !ok {
		return -1
	}
	return rank
}

// IsTransient reports whether a status reflects an in-flight stage.
func IsTransient(status Status) bool {
	_, ok := transientStatuses[status]
	return ok
}

// IsSettled reports whether a status survives a process restart as-is.
func IsSettled(status Status) bool {
	_, known := statusRanks[status]
	return known && !IsTransient(status)
}

// Floor returns the settled status a transient stage rolls back to on
// failure or interruption. Settled statuses are their own floor.
func Floor(status Status) Status {
	switch status {
	case StatusDownloading:
		return StatusNew
	case StatusTranscribing:
		return StatusDownloaded
	case StatusAnalyzing:
		return StatusTranscribed
	default:
		return status
	}
}

// NextSettled returns the settled status a transient stage advances to on
// success. Settled statuses return themselves.
func NextSettled(status Status) Status {
	switch status {
	case StatusDownloading:
		return StatusDownloaded
	case StatusTranscribing:
		return StatusTranscribed
	case StatusAnalyzing:
		return StatusDone
	default:
		return status
	}
}

// Feed represents a subscribed podcast feed.
type Feed struct {
	ID            int64
	URL           string
	Name          string
	Slug          string
	ETag          string
	LastModified  string
	LastCheckedAt time.Time
}

// FeedStats pairs a feed with aggregate episode counts for presentation.
type FeedStats struct {
	Feed
	TotalEpisodes  int
	DoneEpisodes   int
	FailedRecently int
}

// Episode represents one feed entry tracked through the pipeline.
type Episode struct {
	ID              int64
	FeedID          int64
	Key             string
	GUID            string
	AudioURL        string
	Title           string
	PubDate         time.Time
	Slug            string
	EpisodeDir      string
	AudioPath       string
	TranscriptPath  string
	InsightsPath    string
	Status          Status
	FailureReason   string
	FailureAttempts int
	FailedAt        *time.Time
	FirstSeenAt     time.Time
	UpdatedAt       time.Time
}

const episodeKeyLen = 16

// EpisodeKey derives the stable identity of an episode from its feed URL and
// its GUID, falling back to the enclosure URL when the feed omits GUIDs.
func EpisodeKey(feedURL, guid, audioURL string) string {
	ident := strings.TrimSpace(guid)
	if ident == "" {
		ident = strings.TrimSpace(audioURL)
	}
	sum := sha1.Sum([]byte(feedURL + "\n" + ident))
	return hex.EncodeToString(sum[:])[:episodeKeyLen]
}
