package livemap_test

import (
	"testing"
	"time"

	"carmeet/internal/livemap"
)

func TestIsFreshBoundary(t *testing.T) {
	now := time.Now()
	if !livemap.IsFresh(now.Add(-120000*time.Millisecond), now, livemap.DefaultMaxAge) {
		t.Fatal("fix exactly at the window edge must be fresh")
	}
	if livemap.IsFresh(now.Add(-120001*time.Millisecond), now, livemap.DefaultMaxAge) {
		t.Fatal("fix 1ms past the window must be stale")
	}
}

func TestIsFreshMissingTimestamp(t *testing.T) {
	if livemap.IsFresh(time.Time{}, time.Now(), livemap.DefaultMaxAge) {
		t.Fatal("zero timestamp must never be fresh")
	}
}

func TestAgeLabelBuckets(t *testing.T) {
	now := time.Now()
	cases := []struct {
		age  time.Duration
		want string
	}{
		{5 * time.Second, "5s ago"},
		{59 * time.Second, "59s ago"},
		{90 * time.Second, "1m ago"},
		{59 * time.Minute, "59m ago"},
		{3 * time.Hour, "3h ago"},
		{23 * time.Hour, "23h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		if got := livemap.AgeLabel(now.Add(-tc.age), now); got != tc.want {
			t.Errorf("AgeLabel(%v) = %q, want %q", tc.age, got, tc.want)
		}
	}
	if got := livemap.AgeLabel(time.Time{}, now); got != "" {
		t.Errorf("AgeLabel(zero) = %q, want empty", got)
	}
}
