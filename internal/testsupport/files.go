package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
)

// WriteFile places size bytes of filler at path, creating parent directories,
// so artifact checks treat the file as real stage output. A size <= 0 writes
// a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteArtifacts seeds all three stage artifacts for an episode, as if the
// full pipeline had already run.
func WriteArtifacts(t testing.TB, ep *ledger.Episode, size int64) {
	t.Helper()

	WriteFile(t, ep.AudioPath, size)
	WriteFile(t, ep.TranscriptPath, size)
	WriteFile(t, ep.InsightsPath, size)
}
