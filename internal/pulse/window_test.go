package pulse

import (
	"testing"
	"time"
)

func TestComputeWindow(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}

	t.Run("anchors at the configured hour on the current day", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 3, 5, 0, 0, tokyo)
		w := ComputeWindow(now, 3, tokyo)

		wantEnd := time.Date(2024, 1, 15, 3, 0, 0, 0, tokyo)
		if !w.End.Equal(wantEnd) {
			t.Errorf("end = %v, want %v", w.End, wantEnd)
		}
		wantStart := time.Date(2024, 1, 14, 3, 0, 0, 0, tokyo)
		if !w.Start.Equal(wantStart) {
			t.Errorf("start = %v, want %v", w.Start, wantStart)
		}
	})

	t.Run("spans exactly 24 hours", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
		w := ComputeWindow(now, 3, time.UTC)
		if got := w.End.Sub(w.Start); got != 24*time.Hour {
			t.Errorf("span = %v, want 24h", got)
		}
	})

	t.Run("anchor stays on now's calendar day even before the anchor hour", func(t *testing.T) {
		// A run triggered at 01:00 still anchors at 03:00 of the same day,
		// producing a window whose end lies in the future.
		now := time.Date(2024, 1, 15, 1, 0, 0, 0, tokyo)
		w := ComputeWindow(now, 3, tokyo)
		wantEnd := time.Date(2024, 1, 15, 3, 0, 0, 0, tokyo)
		if !w.End.Equal(wantEnd) {
			t.Errorf("end = %v, want %v", w.End, wantEnd)
		}
	})

	t.Run("timezone changes the absolute window", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
		utc := ComputeWindow(now, 3, time.UTC)
		jst := ComputeWindow(now, 3, tokyo)
		if utc.End.Equal(jst.End) {
			t.Errorf("expected different window ends, both %v", utc.End)
		}
	})

	t.Run("nil location falls back to local time", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.Local)
		w := ComputeWindow(now, 3, nil)
		wantEnd := time.Date(2024, 1, 15, 3, 0, 0, 0, time.Local)
		if !w.End.Equal(wantEnd) {
			t.Errorf("end = %v, want %v", w.End, wantEnd)
		}
	})
}

func TestWindowContains(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 1, 14, 3, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"exactly at start", w.Start, true},
		{"exactly at end", w.End, true},
		{"inside", time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC), true},
		{"just before start", w.Start.Add(-time.Second), false},
		{"just after end", w.End.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
