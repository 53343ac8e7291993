package feed_test

import (
	"testing"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/feed"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Podcast</title>
    <item>
      <title>Older Episode</title>
      <guid>guid-older</guid>
      <pubDate>Mon, 02 Mar 2026 08:00:00 +0000</pubDate>
      <enclosure url="https://cdn.example.com/older.mp3" type="audio/mpeg" length="1"/>
    </item>
    <item>
      <title>Newest Episode</title>
      <guid>guid-newest</guid>
      <pubDate>Wed, 04 Mar 2026 08:00:00 GMT</pubDate>
      <enclosure url="https://cdn.example.com/newest-video.mp4" type="video/mp4" length="1"/>
      <enclosure url="https://cdn.example.com/newest.mp3" type="audio/mpeg" length="1"/>
    </item>
    <item>
      <title>No Enclosure</title>
      <guid>guid-none</guid>
      <pubDate>Thu, 05 Mar 2026 08:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Undated Episode</title>
      <enclosure url="https://cdn.example.com/undated.mp3" type="audio/mpeg" length="1"/>
    </item>
  </channel>
</rss>`

func TestParse(t *testing.T) {
	title, entries, err := feed.Parse([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if title != "Example Podcast" {
		t.Fatalf("channel title = %q", title)
	}
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3 (item without enclosure dropped)", len(entries))
	}

	if entries[0].Title != "Newest Episode" {
		t.Fatalf("first entry = %q, want newest", entries[0].Title)
	}
	if entries[0].AudioURL != "https://cdn.example.com/newest.mp3" {
		t.Fatalf("audio enclosure not preferred: %q", entries[0].AudioURL)
	}
	want := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	if !entries[0].PubDate.Equal(want) {
		t.Fatalf("pub date = %v, want %v", entries[0].PubDate, want)
	}

	if entries[1].Title != "Older Episode" {
		t.Fatalf("second entry = %q", entries[1].Title)
	}

	last := entries[2]
	if last.Title != "Undated Episode" || !last.PubDate.IsZero() {
		t.Fatalf("undated entry should sort last: %+v", last)
	}
	if last.GUID != "" {
		t.Fatalf("missing guid should stay empty: %q", last.GUID)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, _, err := feed.Parse([]byte("not xml at all <")); err == nil {
		t.Fatal("expected parse error")
	}
}
