package jobs

import (
	"testing"
	"time"
)

func TestIsReconcilableBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	threshold := paymentPendingThreshold

	cases := []struct {
		name      string
		createdAt time.Time
		want      bool
	}{
		{"one minute short of threshold", now.Add(-threshold + time.Minute), false},
		{"exactly at threshold", now.Add(-threshold), false},
		{"one minute past threshold", now.Add(-threshold - time.Minute), true},
		{"well inside window", now.Add(-3 * time.Hour), true},
		{"exactly at lookback edge", now.Add(-lookbackWindow), true},
		{"beyond lookback window", now.Add(-lookbackWindow - time.Minute), false},
		{"created just now", now, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isReconcilable(tc.createdAt, now, threshold); got != tc.want {
				t.Errorf("isReconcilable(created %s before now) = %v, want %v", now.Sub(tc.createdAt), got, tc.want)
			}
		})
	}
}

func TestSweepWindowMatchesPredicate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	floor, cutoff := sweepWindow(now, paymentPendingThreshold)

	// The SQL window (created_at > floor AND created_at <= cutoff) must
	// agree with the per-row predicate.
	inside := cutoff.Add(-time.Second)
	if !isReconcilable(inside, now, paymentPendingThreshold) {
		t.Error("row inside the window must be reconcilable")
	}
	outsideNew := cutoff.Add(time.Second)
	if isReconcilable(outsideNew, now, paymentPendingThreshold) {
		t.Error("row newer than cutoff must not be reconcilable")
	}
	outsideOld := floor.Add(-time.Second)
	if isReconcilable(outsideOld, now, paymentPendingThreshold) {
		t.Error("row older than floor must not be reconcilable")
	}
}

func TestPastPolicyTimeout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if pastPolicyTimeout(now.Add(-maxPendingAge+time.Minute), now) {
		t.Error("item younger than max pending age must not time out")
	}
	if !pastPolicyTimeout(now.Add(-maxPendingAge-time.Minute), now) {
		t.Error("item older than max pending age must time out")
	}
}
