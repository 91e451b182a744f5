// Package notifications publishes run summaries to ntfy.
//
// A summary is sent after each live pipeline run when the notification
// policy in [notifications] selects its status. Without a topic the service
// is a no-op, so callers never need to check whether notifications are
// enabled.
package notifications
