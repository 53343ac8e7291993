package ledger

import (
	"fmt"

	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

// CanTransition reports whether a status change is legal.
//
// Legal moves are:
//   - a no-op (from == to),
//   - entering a transient stage from any settled status at or past the
//     stage's floor (healing re-runs included),
//   - advancing between settled statuses in rank order (healing a ledger
//     that lags behind artifacts already on disk),
//   - leaving a transient stage either forward to its settled successor
//     or back to its floor.
func CanTransition(from, to Status) bool {
	fromRank, ok := statusRanks[from]
	if !ok {
		return false
	}
	toRank, ok := statusRanks[to]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	if IsTransient(to) {
		return IsSettled(from) && fromRank >= Rank(Floor(to))
	}
	if IsTransient(from) {
		return to == NextSettled(from) || to == Floor(from)
	}
	// Both settled: only forward movement.
	return toRank > fromRank
}

// checkTransition wraps an illegal move in the ledger corruption marker so
// callers can distinguish it from transient store errors.
func checkTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return services.Wrap(services.ErrLedgerCorrupt, "ledger", "set status",
		fmt.Sprintf("illegal transition %s -> %s", from, to), nil)
}
