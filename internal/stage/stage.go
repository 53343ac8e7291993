package stage

import (
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
)

// Stage identifies one step of the episode pipeline.
type Stage string

const (
	Download   Stage = "download"
	Transcribe Stage = "transcribe"
	Insights   Stage = "insights"
)

// Sequence returns the pipeline stages in execution order.
func Sequence() []Stage {
	return []Stage{Download, Transcribe, Insights}
}

// Processing returns the transient status held while the stage runs.
func (s Stage) Processing() ledger.Status {
	switch s {
	case Download:
		return ledger.StatusDownloading
	case Transcribe:
		return ledger.StatusTranscribing
	case Insights:
		return ledger.StatusAnalyzing
	default:
		return ""
	}
}

// Done returns the settled status reached when the stage succeeds.
func (s Stage) Done() ledger.Status {
	return ledger.NextSettled(s.Processing())
}

// Floor returns the settled status the stage rolls back to on failure.
func (s Stage) Floor() ledger.Status {
	return ledger.Floor(s.Processing())
}

// ArtifactPath returns the file the stage is expected to produce for an episode.
func (s Stage) ArtifactPath(ep *ledger.Episode) string {
	switch s {
	case Download:
		return ep.AudioPath
	case Transcribe:
		return ep.TranscriptPath
	case Insights:
		return ep.InsightsPath
	default:
		return ""
	}
}
