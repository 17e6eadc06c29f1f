package domain

import (
	"testing"
	"time"
)

func TestIntersect(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 5, 1, h, m, 0, 0, time.UTC)
	}

	a := &TimeWindow{Open: at(9, 0), Close: at(18, 0)}
	b := &TimeWindow{Open: at(12, 0), Close: at(14, 30)}

	got, ok := Intersect(a, b)
	if !ok || got == nil {
		t.Fatalf("expected overlap")
	}
	if !got.Open.Equal(at(12, 0)) || !got.Close.Equal(at(14, 30)) {
		t.Fatalf("overlap = %+v", got)
	}

	if got, ok := Intersect(nil, b); !ok || got != b {
		t.Fatalf("nil window must be unconstrained")
	}
	if got, ok := Intersect(a, nil); !ok || got != a {
		t.Fatalf("nil window must be unconstrained")
	}
	if got, ok := Intersect(nil, nil); !ok || got != nil {
		t.Fatalf("two nil windows must stay unconstrained, got %+v", got)
	}

	c := &TimeWindow{Open: at(19, 0), Close: at(20, 0)}
	if _, ok := Intersect(a, c); ok {
		t.Fatalf("disjoint windows must not overlap")
	}
}

func TestItineraryDigest(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 5, 1, h, 0, 0, 0, time.UTC) }
	stop := &Stop{ID: "louvre"}

	a := &Itinerary{Stops: []ScheduledStop{{Stop: stop, ArriveAt: at(9), DepartAt: at(10)}}}
	b := &Itinerary{Stops: []ScheduledStop{{Stop: stop, ArriveAt: at(9), DepartAt: at(10)}}}
	if a.Digest() != b.Digest() {
		t.Fatalf("equal plans must share a digest")
	}

	c := &Itinerary{Stops: []ScheduledStop{{Stop: stop, ArriveAt: at(10), DepartAt: at(11)}}}
	if a.Digest() == c.Digest() {
		t.Fatalf("shifted timing must change the digest")
	}
}
