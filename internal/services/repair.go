package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tour-planner-service/internal/domain"
)

// Repair produces a new feasible itinerary after a constraint change,
// disrupting the previous plan as little as possible.
//
// Diffs that only narrow the plan (reduced budget, shrunk day window) take
// the cheap path: drop the lowest-marginal-utility unpinned stops until the
// remaining sequence fits again, leaving the order of everything else
// untouched. Any other change, or cheap-path exhaustion, falls through to a
// full re-optimization seeded with the previous stop set under a continuity
// bonus so already-accepted stops are preferentially retained.
func Repair(
	ctx context.Context,
	prev *domain.Itinerary,
	cs domain.Constraints,
	diff domain.ConstraintDiff,
	pool []*domain.Stop,
	overlay map[string]float64,
	m TravelMatrix,
	cfg OptimizerConfig,
) (*domain.Itinerary, error) {
	if prev == nil || diff.Empty() {
		if prev != nil && diff.Empty() {
			return prev, nil
		}
		return Optimize(ctx, cs, pool, overlay, m, cfg)
	}

	if diff.NarrowsOnly() {
		it, err := trimToFit(cs, prev, overlay, m, cfg)
		if err == nil {
			return it, nil
		}
		if !errors.Is(err, domain.ErrRepairExhausted) {
			return nil, err
		}
		log.Printf("repair: local trim exhausted, falling back to full re-optimization")
	}

	carry := make(map[string]struct{}, len(prev.Stops))
	for _, id := range prev.StopIDs() {
		carry[id] = struct{}{}
	}
	return optimize(ctx, cs, pool, overlay, m, cfg, carry)
}

// trimToFit removes unpinned stops in ascending marginal-utility order until
// the remaining sequence schedules feasibly under the narrowed constraints.
// The relative order of surviving stops is never changed.
func trimToFit(
	cs domain.Constraints,
	prev *domain.Itinerary,
	overlay map[string]float64,
	m TravelMatrix,
	cfg OptimizerConfig,
) (*domain.Itinerary, error) {
	weights := MergeWeights(cs.Interests, overlay)

	seq := make([]*domain.Stop, 0, len(prev.Stops))
	for _, s := range prev.Stops {
		seq = append(seq, s.Stop)
	}

	for {
		it, err := BuildSchedule(cs, seq, m)
		if err == nil {
			it.Utility = cfg.planUtility(cs, it, weights, nil)
			return it, nil
		}

		drop := -1
		lowest := 0.0
		for i, s := range seq {
			if cs.IsPinned(s.ID) {
				continue
			}
			score := cfg.dropScore(cs, s, weights)
			if drop == -1 || score < lowest || (score == lowest && s.ID < seq[drop].ID) {
				drop, lowest = i, score
			}
		}
		if drop == -1 {
			// Only pinned stops left and still infeasible.
			return nil, fmt.Errorf("trim to fit: %w: %v", domain.ErrRepairExhausted, err)
		}

		seq = append(seq[:drop], seq[drop+1:]...)
	}
}
