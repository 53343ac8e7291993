package feed

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Entry is one episode advertised by a feed.
type Entry struct {
	Title    string
	GUID     string
	AudioURL string
	PubDate  time.Time
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title      string         `xml:"title"`
	GUID       string         `xml:"guid"`
	PubDate    string         `xml:"pubDate"`
	Enclosures []rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// pubDateLayouts covers the date formats seen in real-world feeds. RFC 1123
// with a numeric zone is the RSS 2.0 norm but single-digit days and RFC 3339
// timestamps show up often enough to matter.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parsePubDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func selectEnclosure(enclosures []rssEnclosure) string {
	for _, enc := range enclosures {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(enc.Type)), "audio/") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	for _, enc := range enclosures {
		if strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

// Parse decodes an RSS document into the channel title and its audio entries,
// newest first. Items without a usable enclosure are dropped.
func Parse(data []byte) (string, []Entry, error) {
	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("decode rss: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		audioURL := selectEnclosure(item.Enclosures)
		if audioURL == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled"
		}
		entries = append(entries, Entry{
			Title:    title,
			GUID:     strings.TrimSpace(item.GUID),
			AudioURL: audioURL,
			PubDate:  parsePubDate(item.PubDate),
		})
	}

	// Newest first; entries without a parseable date keep document order at the end.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PubDate.IsZero() || entries[j].PubDate.IsZero() {
			return entries[j].PubDate.IsZero() && !entries[i].PubDate.IsZero()
		}
		return entries[i].PubDate.After(entries[j].PubDate)
	})

	return strings.TrimSpace(doc.Channel.Title), entries, nil
}
