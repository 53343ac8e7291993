package ledger

import (
	"fmt"
	"path/filepath"
	"time"
)

// ArtifactPaths locates every artifact of one episode on disk.
type ArtifactPaths struct {
	Dir        string
	Audio      string
	Transcript string
	Insights   string
}

// EpisodePaths computes the on-disk layout for an episode. Episodes live under
// data_dir/<podcast_slug>/<YYYY-MM-DD>_<episode_slug>/ with all artifacts named
// after the episode slug.
func EpisodePaths(dataDir, feedSlug string, pubDate time.Time, episodeSlug string) ArtifactPaths {
	dirName := episodeSlug
	if !pubDate.IsZero() {
		dirName = fmt.Sprintf("%s_%s", pubDate.UTC().Format("2006-01-02"), episodeSlug)
	}
	dir := filepath.Join(dataDir, feedSlug, dirName)
	return ArtifactPaths{
		Dir:        dir,
		Audio:      filepath.Join(dir, episodeSlug+".mp3"),
		Transcript: filepath.Join(dir, episodeSlug+".transcript.md"),
		Insights:   filepath.Join(dir, episodeSlug+".insights.md"),
	}
}
