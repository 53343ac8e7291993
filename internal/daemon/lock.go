package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

// Lock guards the data directory against concurrent polling or processing
// from another process. Release it with Unlock.
type Lock struct {
	lock *flock.Flock
	path string
}

// Acquire takes the instance lock without blocking. A held lock surfaces as a
// busy error so callers can print a friendly message instead of deadlocking.
func Acquire(cfg *config.Config) (*Lock, error) {
	path := cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "daemon", "acquire lock",
			"another podcast-insights instance holds "+path, nil)
	}
	return &Lock{lock: fl, path: path}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Unlock releases the instance lock.
func (l *Lock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
