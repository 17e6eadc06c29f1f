package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TravelLeg is the transport connection from one scheduled stop to the next.
type TravelLeg struct {
	Mode     TransportMode
	Duration time.Duration
	Cost     float64
}

// ScheduledStop is one visit in an itinerary. Leg describes travel to the
// next stop and is nil for the final stop.
type ScheduledStop struct {
	Stop     *Stop
	ArriveAt time.Time
	DepartAt time.Time
	Leg      *TravelLeg
}

// Itinerary is the ordered, time-and-cost-annotated day plan. It is produced
// whole by the optimizer and replaced whole on repair, never mutated in
// place, so repairs stay pure functions of (old itinerary, change).
type Itinerary struct {
	Stops []ScheduledStop

	// TotalCost sums stop costs and travel-leg costs.
	TotalCost float64
	// TotalTravel sums travel-leg durations.
	TotalTravel time.Duration
	// Slack sums idle time spent waiting for stops to open.
	Slack time.Duration
	// Utility is the score the optimizer assigned to this plan.
	Utility float64
}

// StopIDs returns the visit order as stop identifiers.
func (it *Itinerary) StopIDs() []string {
	ids := make([]string, 0, len(it.Stops))
	for _, s := range it.Stops {
		ids = append(ids, s.Stop.ID)
	}
	return ids
}

// HasStop reports whether the plan visits the given stop.
func (it *Itinerary) HasStop(stopID string) bool {
	for _, s := range it.Stops {
		if s.Stop.ID == stopID {
			return true
		}
	}
	return false
}

// Start returns the arrival time at the first stop, or zero when empty.
func (it *Itinerary) Start() time.Time {
	if len(it.Stops) == 0 {
		return time.Time{}
	}
	return it.Stops[0].ArriveAt
}

// End returns the departure time from the last stop, or zero when empty.
func (it *Itinerary) End() time.Time {
	if len(it.Stops) == 0 {
		return time.Time{}
	}
	return it.Stops[len(it.Stops)-1].DepartAt
}

// Digest returns a stable hash of the visit sequence and timing. Preference
// recording keys on it so recording the same accepted plan twice cannot
// double-count.
func (it *Itinerary) Digest() string {
	var b strings.Builder
	for _, s := range it.Stops {
		fmt.Fprintf(&b, "%s@%d-%d;", s.Stop.ID, s.ArriveAt.Unix(), s.DepartAt.Unix())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
