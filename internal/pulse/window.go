package pulse

import "time"

// Window is the closed interval [Start, End] a batch run operates over.
type Window struct {
	Start time.Time
	End   time.Time
}

// ComputeWindow anchors the window end at anchorHour on now's calendar day
// in loc and extends exactly 24 hours back. The anchor is fixed, not sliding
// from now: an external scheduler is expected to trigger the run shortly
// after the anchor hour.
func ComputeWindow(now time.Time, anchorHour int, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), anchorHour, 0, 0, 0, loc)
	return Window{Start: end.Add(-24 * time.Hour), End: end}
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
