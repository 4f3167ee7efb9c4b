// Package notifications pushes job lifecycle events to an ntfy topic when
// one is configured. Without a topic every notification is a no-op.
package notifications
