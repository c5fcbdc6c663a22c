package utils

import (
	"testing"
	"time"
)

func TestIdempotencyKey(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)

	t.Run("same cart in same bucket yields same key", func(t *testing.T) {
		a := IdempotencyKey("buyer-1", "tt-1", 2, base)
		b := IdempotencyKey("buyer-1", "tt-1", 2, base.Add(90*time.Second))
		if a != b {
			t.Errorf("expected stable key within bucket, got %s vs %s", a, b)
		}
	})

	t.Run("different bucket yields different key", func(t *testing.T) {
		a := IdempotencyKey("buyer-1", "tt-1", 2, base)
		b := IdempotencyKey("buyer-1", "tt-1", 2, base.Add(6*time.Minute))
		if a == b {
			t.Error("expected key to rotate across buckets")
		}
	})

	t.Run("different cart yields different key", func(t *testing.T) {
		a := IdempotencyKey("buyer-1", "tt-1", 2, base)
		b := IdempotencyKey("buyer-1", "tt-1", 3, base)
		c := IdempotencyKey("buyer-2", "tt-1", 2, base)
		if a == b || a == c {
			t.Error("expected cart contents and buyer to affect the key")
		}
	})
}
