package domain

import "time"

// TimeWindow bounds when a stop may be visited. Zero-valued bounds are not
// allowed; an absent window is represented by a nil *TimeWindow.
type TimeWindow struct {
	Open  time.Time
	Close time.Time
}

func (w TimeWindow) Valid() bool { return w.Close.After(w.Open) }

// Contains reports whether t lies within [Open, Close].
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Open) && !t.After(w.Close)
}

// Within reports whether the whole window lies inside [start, end].
func (w TimeWindow) Within(start, end time.Time) bool {
	return !w.Open.Before(start) && !w.Close.After(end)
}

// Intersect returns the overlap of two optional windows. A nil window is
// unconstrained. ok is false when the overlap is empty.
func Intersect(a, b *TimeWindow) (*TimeWindow, bool) {
	if a == nil {
		return b, true
	}
	if b == nil {
		return a, true
	}

	open := a.Open
	if b.Open.After(open) {
		open = b.Open
	}
	closeAt := a.Close
	if b.Close.Before(closeAt) {
		closeAt = b.Close
	}
	if !closeAt.After(open) {
		return nil, false
	}
	return &TimeWindow{Open: open, Close: closeAt}, true
}
