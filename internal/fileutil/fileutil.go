package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// NonEmpty reports whether path exists as a regular file of at least minBytes.
func NonEmpty(path string, minBytes int64) bool {
	if minBytes <= 0 {
		minBytes = 1
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() >= minBytes
}

// MoveFile renames src to dst, falling back to a copy-and-remove when the
// paths live on different filesystems. The destination directory is created
// if needed. The final path only ever holds a complete file: the copy
// fallback stages into the destination directory and renames into place.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !errors.Is(err, unix.EXDEV) {
		return fmt.Errorf("rename %s: %w", filepath.Base(src), err)
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile writes src to a sibling temp file of dst, then renames it into
// place so an interrupted copy never appears at dst itself.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	staged := dst + ".part"
	out, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(staged)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(staged)
		return err
	}
	return os.Rename(staged, dst)
}

// CheckDiskSpace returns an error when the filesystem containing dir has
// fewer than minFreeMiB mebibytes available. A minFreeMiB of zero disables
// the check.
func CheckDiskSpace(dir string, minFreeMiB int64) error {
	if minFreeMiB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	freeMiB := int64(stat.Bavail) * stat.Bsize / (1 << 20)
	if freeMiB < minFreeMiB {
		return fmt.Errorf("insufficient disk space in %s: %d MiB free, %d MiB required", dir, freeMiB, minFreeMiB)
	}
	return nil
}
