package domain

import "time"

// PreferenceRecord is the per-user accumulated taste profile for a city.
// The preference store owns it; planning sessions only read the weight
// overlay and append accepted itineraries.
type PreferenceRecord struct {
	UserID string
	City   string
	// Weights overlays per-category interest in [0,1], accumulated from
	// accepted itineraries.
	Weights map[string]float64
	History []AcceptedItinerary
}

// AcceptedItinerary is one history entry: a plan the user accepted.
type AcceptedItinerary struct {
	Digest     string
	StopIDs    []string
	TotalCost  float64
	RecordedAt time.Time
}
