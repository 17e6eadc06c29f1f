package domain

import "time"

// Stop is a place eligible for inclusion in an itinerary, with the cost,
// duration and window metadata planning needs. A Stop is immutable once
// fetched for a planning session; a fresh fetch may supersede it.
type Stop struct {
	ID            string
	Name          string
	Location      Coordinates
	Categories    []string
	VisitDuration time.Duration
	Cost          float64
	Window        *TimeWindow
	// Popularity scores the stop per category in [0,1].
	Popularity map[string]float64
}

// HasCategory reports whether the stop carries the given category tag.
func (s *Stop) HasCategory(category string) bool {
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}
