package stage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/michaeldiestelberg/podcast-insights/internal/fileutil"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

// download streams the episode enclosure to a temp file and moves it into
// place atomically, so a crash never leaves a partial file at the final path.
func (r *Runner) download(ctx context.Context, ep *ledger.Episode) error {
	if err := fileutil.CheckDiskSpace(r.cfg.Storage.TempDir, r.cfg.Runtime.MinFreeSpaceMiB); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.AudioURL, nil)
	if err != nil {
		return services.Wrap(services.ErrNetwork, string(Download), "build request", ep.AudioURL, err)
	}
	req.Header.Set("User-Agent", "podcast-insights/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetwork, string(Download), "fetch audio", ep.AudioURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrNetwork, string(Download), "fetch audio",
			fmt.Sprintf("%s returned HTTP %d", ep.AudioURL, resp.StatusCode), nil)
	}

	if err := os.MkdirAll(r.cfg.Storage.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	partPath := filepath.Join(r.cfg.Storage.TempDir, filepath.Base(ep.AudioPath)+".part")
	written, err := streamToFile(resp.Body, partPath)
	if err != nil {
		_ = os.Remove(partPath)
		return services.Wrap(services.ErrNetwork, string(Download), "stream audio", ep.AudioURL, err)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(partPath)
		return services.Wrap(services.ErrNetwork, string(Download), "stream audio",
			fmt.Sprintf("received %d of %d bytes", written, resp.ContentLength), nil)
	}

	if err := fileutil.MoveFile(partPath, ep.AudioPath); err != nil {
		_ = os.Remove(partPath)
		return fmt.Errorf("move audio into place: %w", err)
	}
	return nil
}

func streamToFile(src io.Reader, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr != nil {
		return written, copyErr
	}
	return written, closeErr
}
