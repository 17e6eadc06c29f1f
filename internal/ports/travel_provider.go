package ports

import (
	"context"
	"time"

	"tour-planner-service/internal/domain"
)

// TravelQuery asks for one travel leg. Results may be asymmetric (direction
// or departure time dependent); callers must not assume travel(a,b) equals
// travel(b,a).
type TravelQuery struct {
	From     domain.Coordinates
	To       domain.Coordinates
	Mode     domain.TransportMode
	DepartAt time.Time
}

// Contract for retrieving travel duration and monetary cost between points.
type TravelProvider interface {
	// GetTravel returns the leg for a single origin/destination pair.
	// An unresolvable pair wraps domain.ErrRouteUnavailable; the caller
	// excludes that edge rather than failing the plan.
	GetTravel(ctx context.Context, q TravelQuery) (domain.TravelLeg, error)
}

// Optional extension of TravelProvider that supports batched lookups from
// one origin to many destinations.
type TravelMatrixProvider interface {
	TravelProvider
	// GetTravels returns legs from one origin to many destinations, keyed
	// by destination index. Missing entries mean the edge is unavailable.
	GetTravels(ctx context.Context, from domain.Coordinates, to []domain.Coordinates, mode domain.TransportMode, departAt time.Time) (map[int]domain.TravelLeg, error)
}

// TravelCache persists resolved legs keyed by opaque origin/destination
// keys. Implementations must be safe for concurrent use.
type TravelCache interface {
	GetMany(ctx context.Context, mode domain.TransportMode, origin string, destinations []string) (map[string]domain.TravelLeg, error)
	PutMany(ctx context.Context, mode domain.TransportMode, origin string, legs map[string]domain.TravelLeg) error
}
