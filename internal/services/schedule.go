package services

import (
	"fmt"
	"time"

	"tour-planner-service/internal/domain"
)

// TravelMatrix is a stable snapshot of travel legs between stops, keyed
// "originID|destinationID". Pairs the provider could not resolve are simply
// absent; schedules that would need them are rejected as infeasible orders.
type TravelMatrix map[string]domain.TravelLeg

func matrixKey(fromID, toID string) string { return fromID + "|" + toID }

// Leg returns the travel leg between two stops, if known.
func (m TravelMatrix) Leg(fromID, toID string) (domain.TravelLeg, bool) {
	leg, ok := m[matrixKey(fromID, toID)]
	return leg, ok
}

// budgetEpsilon absorbs float accumulation noise in cost comparisons.
const budgetEpsilon = 1e-9

// BuildSchedule computes the full timed schedule for an ordered stop
// sequence under the given constraints.
//
// Timing cascades forward through the whole sequence: arrival at each stop
// is departure from the previous plus travel, waiting until the stop opens
// when necessary. The schedule is rejected when any stop's window is missed,
// the final departure overruns the day end, or the running cost exceeds the
// budget. A shifted arrival can therefore invalidate a stop far downstream,
// which is exactly why callers must not rely on neighbor-only checks.
func BuildSchedule(cs domain.Constraints, seq []*domain.Stop, m TravelMatrix) (*domain.Itinerary, error) {
	it := &domain.Itinerary{Stops: make([]domain.ScheduledStop, 0, len(seq))}
	if len(seq) == 0 {
		return it, nil
	}

	cur := cs.DayStart
	for i, s := range seq {
		arrive := cur

		if i > 0 {
			leg, ok := m.Leg(seq[i-1].ID, s.ID)
			if !ok {
				return nil, fmt.Errorf("no route from %q to %q", seq[i-1].Name, s.Name)
			}
			it.Stops[i-1].Leg = &leg
			it.TotalTravel += leg.Duration
			it.TotalCost += leg.Cost
			arrive = cur.Add(leg.Duration)
		}

		// A pinned visit window narrows the stop's own opening hours.
		window, ok := domain.Intersect(s.Window, cs.PinnedWindow(s.ID))
		if !ok {
			return nil, fmt.Errorf("stop %q: required visit window does not overlap opening hours", s.Name)
		}
		if window != nil {
			if arrive.Before(window.Open) {
				it.Slack += window.Open.Sub(arrive)
				arrive = window.Open
			}
			if arrive.After(window.Close) {
				return nil, fmt.Errorf("stop %q: arrival %s is after it closes at %s",
					s.Name, arrive.Format("15:04"), window.Close.Format("15:04"))
			}
		}

		depart := arrive.Add(s.VisitDuration)
		if depart.After(cs.DayEnd) {
			return nil, fmt.Errorf("stop %q: visit would end at %s, after the day ends at %s",
				s.Name, depart.Format("15:04"), cs.DayEnd.Format("15:04"))
		}

		it.TotalCost += s.Cost
		if it.TotalCost > cs.Budget+budgetEpsilon {
			return nil, fmt.Errorf("stop %q: running cost %.2f exceeds budget %.2f", s.Name, it.TotalCost, cs.Budget)
		}

		it.Stops = append(it.Stops, domain.ScheduledStop{Stop: s, ArriveAt: arrive, DepartAt: depart})
		cur = depart
	}

	return it, nil
}

// CanInsert checks whether inserting stop at position pos keeps the whole
// resulting sequence feasible, re-timing every downstream stop. On success
// it returns the full rescheduled itinerary together with the cost and time
// deltas relative to the current plan.
func CanInsert(cs domain.Constraints, current *domain.Itinerary, stop *domain.Stop, pos int, m TravelMatrix) (*domain.Itinerary, float64, time.Duration, error) {
	seq := make([]*domain.Stop, 0, len(current.Stops)+1)
	for i, s := range current.Stops {
		if i == pos {
			seq = append(seq, stop)
		}
		seq = append(seq, s.Stop)
	}
	if pos >= len(current.Stops) {
		seq = append(seq, stop)
	}

	next, err := BuildSchedule(cs, seq, m)
	if err != nil {
		return nil, 0, 0, err
	}

	costDelta := next.TotalCost - current.TotalCost
	timeDelta := next.End().Sub(current.End())
	if len(current.Stops) == 0 {
		timeDelta = next.End().Sub(next.Start())
	}
	return next, costDelta, timeDelta, nil
}
