package models

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"pending to completed", PaymentPending, PaymentCompleted, true},
		{"pending to failed", PaymentPending, PaymentFailed, true},
		{"pending to cancelled", PaymentPending, PaymentCancelled, true},
		{"pending to pending", PaymentPending, PaymentPending, false},
		{"completed is frozen", PaymentCompleted, PaymentFailed, false},
		{"failed is frozen", PaymentFailed, PaymentCompleted, false},
		{"cancelled is frozen", PaymentCancelled, PaymentCompleted, false},
		{"unknown target", PaymentPending, "refunded", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for _, s := range []string{PaymentCompleted, PaymentFailed, PaymentCancelled} {
		if !IsTerminalStatus(s) {
			t.Errorf("expected %q to be terminal", s)
		}
	}
	if IsTerminalStatus(PaymentPending) {
		t.Error("pending must not be terminal")
	}
}
