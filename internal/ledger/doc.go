// Package ledger persists feed subscriptions and episode pipeline state in
// SQLite. The episode status machine only moves forward between settled
// statuses; transient stage statuses roll back to their floor on failure so an
// interrupted run can resume from the last durable point.
package ledger
