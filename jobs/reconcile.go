// Package jobs holds the cron-driven reconciliation sweeps: the
// backstop guaranteeing every payment and withdrawal eventually reaches
// a terminal state even when the provider's callback never arrives.
package jobs

import "time"

const (
	// How long a payment may sit pending before the sweep considers it.
	paymentPendingThreshold = 10 * time.Minute
	// Payouts settle slower than STK pushes; sweep them later.
	payoutPendingThreshold = 30 * time.Minute
	// Items older than this are out of the sweep entirely, keeping the
	// candidate scan bounded.
	lookbackWindow = 24 * time.Hour
	// Past this age a still-unresolved item is failed by policy.
	maxPendingAge = 2 * time.Hour
)

// sweepWindow bounds one candidate query: rows created inside
// (floor, cutoff] are due for reconciliation.
func sweepWindow(now time.Time, threshold time.Duration) (floor, cutoff time.Time) {
	return now.Add(-lookbackWindow), now.Add(-threshold)
}

// isReconcilable is the boundary predicate for one row: strictly older
// than the threshold, but still inside the lookback window.
func isReconcilable(createdAt, now time.Time, threshold time.Duration) bool {
	age := now.Sub(createdAt)
	return age > threshold && age <= lookbackWindow
}

// pastPolicyTimeout reports whether waiting any longer stops being a
// remedy and the item should be failed with a policy reason code.
func pastPolicyTimeout(createdAt, now time.Time) bool {
	return now.Sub(createdAt) > maxPendingAge
}
