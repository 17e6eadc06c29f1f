package travel

import (
	"context"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

// Per-mode average speeds in meters per second.
const (
	walkSpeed    = 1.33 // ~4.8 km/h
	transitSpeed = 5.5  // ~20 km/h door to door
	taxiSpeed    = 8.3  // ~30 km/h in city traffic
)

const (
	transitFlatFare = 2.0
	transitOverhead = 5 * time.Minute
	taxiBaseFare    = 3.0
	taxiFarePerKm   = 1.5
	taxiPickup      = 2 * time.Minute
)

// Mixed mode walks short hops and rides transit for anything longer.
const mixedWalkCutoverMeters = 1500.0

// EstimateTravelProvider computes deterministic travel legs from
// great-circle distance and per-mode speed and fare models. It never fails,
// which makes it the fallback when no external routing service is
// configured and keeps degraded deployments planning.
type EstimateTravelProvider struct{}

func NewEstimateTravelProvider() *EstimateTravelProvider { return &EstimateTravelProvider{} }

func (p *EstimateTravelProvider) GetTravel(ctx context.Context, q ports.TravelQuery) (domain.TravelLeg, error) {
	meters := q.From.DistanceMeters(q.To)
	return estimateLeg(meters, q.Mode, q.DepartAt), nil
}

func (p *EstimateTravelProvider) GetTravels(
	ctx context.Context,
	from domain.Coordinates,
	to []domain.Coordinates,
	mode domain.TransportMode,
	departAt time.Time,
) (map[int]domain.TravelLeg, error) {
	out := make(map[int]domain.TravelLeg, len(to))
	for i, dest := range to {
		out[i] = estimateLeg(from.DistanceMeters(dest), mode, departAt)
	}
	return out, nil
}

func estimateLeg(meters float64, mode domain.TransportMode, departAt time.Time) domain.TravelLeg {
	if mode == domain.ModeMixed {
		if meters <= mixedWalkCutoverMeters {
			mode = domain.ModeWalk
		} else {
			mode = domain.ModeTransit
		}
	}

	var leg domain.TravelLeg
	leg.Mode = mode

	switch mode {
	case domain.ModeWalk:
		leg.Duration = time.Duration(meters/walkSpeed) * time.Second
	case domain.ModeTransit:
		leg.Duration = transitOverhead + time.Duration(meters/transitSpeed)*time.Second
		leg.Cost = transitFlatFare
	case domain.ModeTaxi:
		leg.Duration = taxiPickup + time.Duration(meters/taxiSpeed)*time.Second
		leg.Cost = taxiBaseFare + taxiFarePerKm*meters/1000
	}

	// Motorized legs slow down at peak hours, so the same pair costs more
	// time depending on when it is traveled.
	if mode != domain.ModeWalk && isPeak(departAt) {
		leg.Duration = leg.Duration * 13 / 10
	}

	return leg
}

func isPeak(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	h := t.Hour()
	return (h >= 7 && h < 9) || (h >= 17 && h < 19)
}
