package rules

import (
	"testing"
	"time"
)

func TestCanonicalPairOrdersLowerFirst(t *testing.T) {
	a, b := CanonicalPair(42, 7)
	if a != 7 || b != 42 {
		t.Fatalf("unexpected pair: got (%d, %d) want (7, 42)", a, b)
	}

	a, b = CanonicalPair(7, 42)
	if a != 7 || b != 42 {
		t.Fatalf("pair must not depend on argument order: got (%d, %d)", a, b)
	}
}

func TestDayKeyUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	utc := time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC) // Feb 28 21:30 local
	got := DayKey(utc, loc)
	want := "2026-02-28"
	if got != want {
		t.Fatalf("unexpected day key: got %s want %s", got, want)
	}
}

func TestDayKeyDefaultsToUTC(t *testing.T) {
	utc := time.Date(2026, 2, 8, 23, 59, 59, 0, time.UTC)
	if got := DayKey(utc, nil); got != "2026-02-08" {
		t.Fatalf("unexpected day key: got %s", got)
	}
}

func TestDayStartAndNextResetBracketNow(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC)
	start := DayStart(now, loc)
	reset := NextResetAt(now, loc)

	if !start.Before(now) {
		t.Fatalf("day start %s must be before now %s", start, now)
	}
	if !reset.After(now) {
		t.Fatalf("next reset %s must be after now %s", reset, now)
	}
	if got := reset.Sub(start); got != 24*time.Hour {
		t.Fatalf("expected a 24h quota day, got %s", got)
	}
}

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    string
	}{
		{name: "short passes through", content: "hi", max: 50, want: "hi"},
		{name: "long is cut", content: "abcdefgh", max: 4, want: "abcd"},
		{name: "multibyte safe", content: "héllo wörld", max: 5, want: "héllo"},
		{name: "zero max falls back to default", content: "hey", max: 0, want: "hey"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncatePreview(tc.content, tc.max); got != tc.want {
				t.Fatalf("unexpected preview: got %q want %q", got, tc.want)
			}
		})
	}
}
