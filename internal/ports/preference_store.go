package ports

import (
	"context"

	"tour-planner-service/internal/domain"
)

// Port: long-lived preference memory keyed by user identity. The store owns
// PreferenceRecords; sessions hold a read/append relation only.
type PreferenceStore interface {
	// Record appends an accepted itinerary to the user's history for a
	// city and accumulates category weights. Recording the same itinerary
	// twice (same digest) must not double-count.
	Record(ctx context.Context, userID, city string, it *domain.Itinerary) error

	// WeightsFor returns the per-category interest overlay accumulated
	// for a user in a city. Unknown users yield an empty map.
	WeightsFor(ctx context.Context, userID, city string) (map[string]float64, error)
}
