// Package notifications delivers push notifications about pipeline progress
// through ntfy. With no topic configured every notification is a no-op.
package notifications
