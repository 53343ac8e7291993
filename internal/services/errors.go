package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks a non-zero exit from an external command.
	ErrExternalTool = errors.New("external tool error")
	// ErrVerification marks a tool that reported success but produced a
	// missing or empty artifact.
	ErrVerification = errors.New("verification error")
	// ErrNetwork marks a failed download stream or HTTP exchange.
	ErrNetwork = errors.New("network error")
	// ErrInvalidSelection marks an unparseable or out-of-range episode selection.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrBusy marks an attempt to start a run while another is active.
	ErrBusy = errors.New("another run is active")
	// ErrLedgerCorrupt marks a structural inconsistency in the persisted state.
	ErrLedgerCorrupt = errors.New("ledger corruption")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a stage error should be retried before giving up.
// Selection, busy, and ledger errors are surfaced immediately.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrExternalTool), errors.Is(err, ErrVerification), errors.Is(err, ErrNetwork):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
