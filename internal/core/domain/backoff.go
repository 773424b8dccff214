package domain

import "time"

// =============================================================================
// Notification Backoff Policy
// =============================================================================

// MaxNotifyAttempts is the delivery attempt budget for evaluator notifications.
const MaxNotifyAttempts = 5

// NotifyDelay returns the wait before retrying after a failed delivery
// attempt. Attempts are numbered from 1; the schedule is geometric with a
// one second base, doubling each time: 1s, 2s, 4s, 8s, 16s.
//
// There is no delay after the final attempt, so callers only consult this
// for attempt < MaxNotifyAttempts.
//
// Example:
//
//	NotifyDelay(1) // returns 1 * time.Second
//	NotifyDelay(3) // returns 4 * time.Second
func NotifyDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Second << (attempt - 1)
}
