package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

type matrixRow struct {
	origin string
	legs   map[string]domain.TravelLeg
}

// BuildTravelMatrix snapshots travel legs between every ordered pair of
// stops for the given mode. Lookups run concurrently with a bounded number
// of in-flight origins. Unresolvable pairs are excluded rather than failing
// the build, so a degraded provider still yields a usable (sparser) matrix.
func BuildTravelMatrix(
	ctx context.Context,
	provider ports.TravelProvider,
	stops []*domain.Stop,
	mode domain.TransportMode,
	departAt time.Time,
) TravelMatrix {
	matrix := make(TravelMatrix, len(stops)*len(stops))
	if len(stops) < 2 {
		return matrix
	}

	mp, hasMatrix := provider.(ports.TravelMatrixProvider)

	sem := make(chan struct{}, 5)
	rows := make(chan matrixRow, len(stops))
	var wg sync.WaitGroup

	for _, origin := range stops {
		wg.Add(1)
		go func(origin *domain.Stop) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			legs := make(map[string]domain.TravelLeg, len(stops)-1)

			if hasMatrix {
				dests := make([]domain.Coordinates, 0, len(stops)-1)
				destIDs := make([]string, 0, len(stops)-1)
				for _, d := range stops {
					if d.ID == origin.ID {
						continue
					}
					dests = append(dests, d.Location)
					destIDs = append(destIDs, d.ID)
				}

				res, err := mp.GetTravels(ctx, origin.Location, dests, mode, departAt)
				if err != nil {
					log.Printf("travel matrix: origin=%s mode=%s err=%v", origin.ID, mode, err)
					rows <- matrixRow{origin: origin.ID, legs: legs}
					return
				}
				for idx, leg := range res {
					legs[destIDs[idx]] = leg
				}
				rows <- matrixRow{origin: origin.ID, legs: legs}
				return
			}

			for _, d := range stops {
				if d.ID == origin.ID {
					continue
				}
				leg, err := provider.GetTravel(ctx, ports.TravelQuery{
					From:     origin.Location,
					To:       d.Location,
					Mode:     mode,
					DepartAt: departAt,
				})
				if err != nil {
					// Drop only the failed edge; the rest of the row stays usable.
					if !errors.Is(err, domain.ErrRouteUnavailable) {
						log.Printf("travel matrix: edge %s->%s mode=%s err=%v", origin.ID, d.ID, mode, err)
					}
					continue
				}
				legs[d.ID] = leg
			}
			rows <- matrixRow{origin: origin.ID, legs: legs}
		}(origin)
	}

	wg.Wait()
	close(rows)

	for row := range rows {
		for destID, leg := range row.legs {
			matrix[matrixKey(row.origin, destID)] = leg
		}
	}

	return matrix
}
