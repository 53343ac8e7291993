package workflow

import (
	"fmt"
	"strings"

	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/stage"
)

// Mode limits how far a processing run carries each episode.
type Mode string

const (
	ModeFull           Mode = "full"
	ModeTranscribeOnly Mode = "transcribe-only"
	ModeDownloadOnly   Mode = "download-only"
)

// ParseMode converts a CLI flag value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeFull, "":
		return ModeFull, nil
	case ModeTranscribeOnly:
		return ModeTranscribeOnly, nil
	case ModeDownloadOnly:
		return ModeDownloadOnly, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected full, transcribe-only, or download-only)", value)
	}
}

// Terminal returns the settled status a run in this mode drives episodes to.
func (m Mode) Terminal() ledger.Status {
	switch m {
	case ModeDownloadOnly:
		return ledger.StatusDownloaded
	case ModeTranscribeOnly:
		return ledger.StatusTranscribed
	default:
		return ledger.StatusDone
	}
}

// Stages returns the pipeline stages the mode executes, in order.
func (m Mode) Stages() []stage.Stage {
	switch m {
	case ModeDownloadOnly:
		return []stage.Stage{stage.Download}
	case ModeTranscribeOnly:
		return []stage.Stage{stage.Download, stage.Transcribe}
	default:
		return stage.Sequence()
	}
}
