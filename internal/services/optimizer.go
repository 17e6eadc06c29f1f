package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"tour-planner-service/internal/domain"
)

// OptimizerConfig holds the tunable utility coefficients and search bounds.
// Coefficients are configuration, not contract: deployments adjust how
// aggressively idle time and leftover budget are discouraged.
type OptimizerConfig struct {
	// SlackPenaltyWeight discounts utility per hour of idle waiting time.
	SlackPenaltyWeight float64
	// BudgetSlackPenaltyWeight discounts utility per unused budget fraction.
	BudgetSlackPenaltyWeight float64
	// DiversityBonus rewards each distinct category in the plan.
	DiversityBonus float64
	// ContinuityBonus rewards retaining a stop from the previous plan
	// during repair.
	ContinuityBonus float64
	// MaxStops caps the plan length.
	MaxStops int
	// LocalSearchPasses bounds the swap/relocate refinement.
	LocalSearchPasses int
	// TimeBudget is a soft wall-clock limit; when exceeded the optimizer
	// returns the best plan found so far instead of blocking.
	TimeBudget time.Duration
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		SlackPenaltyWeight:       0.5,
		BudgetSlackPenaltyWeight: 0.3,
		DiversityBonus:           0.15,
		ContinuityBonus:          0.4,
		MaxStops:                 12,
		LocalSearchPasses:        3,
		TimeBudget:               2 * time.Second,
	}
}

// MergeWeights overlays historically learned category weights onto the
// user's stated interests. Stated interests dominate; history nudges.
func MergeWeights(stated, overlay map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(stated)+len(overlay))
	for c, w := range stated {
		out[c] = w
	}
	for c, w := range overlay {
		if base, ok := out[c]; ok {
			out[c] = 0.7*base + 0.3*w
		} else {
			out[c] = 0.3 * w
		}
	}
	return out
}

// stopScore is the interest value of one stop: the best match between the
// user's category weights and the stop's per-category popularity.
func stopScore(s *domain.Stop, weights map[string]float64) float64 {
	best := 0.0
	for _, c := range s.Categories {
		w, ok := weights[c]
		if !ok {
			continue
		}
		pop := s.Popularity[c]
		if pop == 0 {
			pop = 0.5
		}
		if v := w * pop; v > best {
			best = v
		}
	}
	return best
}

// planUtility scores a full plan: summed stop interest, a bonus per distinct
// category, minus penalties for idle time and unspent budget.
func (cfg OptimizerConfig) planUtility(cs domain.Constraints, it *domain.Itinerary, weights map[string]float64, carry map[string]struct{}) float64 {
	u := lo.SumBy(it.Stops, func(s domain.ScheduledStop) float64 {
		return stopScore(s.Stop, weights)
	})

	seen := make(map[string]struct{})
	for _, s := range it.Stops {
		for _, c := range s.Stop.Categories {
			seen[c] = struct{}{}
		}
	}
	u += cfg.DiversityBonus * float64(len(seen))

	u -= cfg.SlackPenaltyWeight * it.Slack.Hours()
	if cs.Budget > 0 {
		u -= cfg.BudgetSlackPenaltyWeight * (cs.Budget - it.TotalCost) / cs.Budget
	}

	for id := range carry {
		if it.HasStop(id) {
			u += cfg.ContinuityBonus
		}
	}

	return u
}

// effectiveClose returns the deadline pressure on a candidate: the close of
// its visit window, or the day end when unconstrained. Used as the tie-break
// so more time-constrained stops are placed first.
func effectiveClose(cs domain.Constraints, s *domain.Stop) time.Time {
	window, ok := domain.Intersect(s.Window, cs.PinnedWindow(s.ID))
	if !ok || window == nil {
		return cs.DayEnd
	}
	return window.Close
}

// Optimize builds the highest-utility feasible itinerary from the candidate
// pool: pinned stops seed the plan, greedy marginal-utility insertion fills
// it, and a bounded 2-opt style swap/relocate refinement escapes greedy
// local traps. Failure to schedule the pinned seed alone is terminal: the
// error names the blocking stops and carries the best plan that fits
// without them. Everything past the seed degrades gracefully.
func Optimize(
	ctx context.Context,
	cs domain.Constraints,
	pool []*domain.Stop,
	overlay map[string]float64,
	m TravelMatrix,
	cfg OptimizerConfig,
) (*domain.Itinerary, error) {
	return optimize(ctx, cs, pool, overlay, m, cfg, nil)
}

func optimize(
	ctx context.Context,
	cs domain.Constraints,
	pool []*domain.Stop,
	overlay map[string]float64,
	m TravelMatrix,
	cfg OptimizerConfig,
	carry map[string]struct{},
) (*domain.Itinerary, error) {
	weights := MergeWeights(cs.Interests, overlay)

	byID := make(map[string]*domain.Stop, len(pool))
	for _, s := range pool {
		byID[s.ID] = s
	}

	var deadline time.Time
	if cfg.TimeBudget > 0 {
		deadline = time.Now().Add(cfg.TimeBudget)
	}
	expired := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return !deadline.IsZero() && time.Now().After(deadline)
	}

	// Seed with pinned stops in the user's order, reordered only where the
	// required windows imply a different one. Pinned stops missing from
	// the pool are blocking; the rest still seed the reported partial.
	var blocking []string
	seed := make([]*domain.Stop, 0, len(cs.Pinned))
	for _, p := range cs.Pinned {
		s, ok := byID[p.StopID]
		if !ok {
			blocking = append(blocking, fmt.Sprintf("pinned stop %q is not in the candidate pool", p.StopID))
			continue
		}
		seed = append(seed, s)
	}
	slices.SortStableFunc(seed, func(a, b *domain.Stop) int {
		wa, wb := cs.PinnedWindow(a.ID), cs.PinnedWindow(b.ID)
		if wa == nil || wb == nil {
			return 0
		}
		return wa.Open.Compare(wb.Open)
	})

	if len(blocking) > 0 {
		return nil, &domain.InfeasibleError{
			Blocking: blocking,
			Partial:  cfg.bestPartial(cs, seed, pool, weights, carry, m, expired),
		}
	}

	current, err := BuildSchedule(cs, seed, m)
	if err != nil {
		return nil, &domain.InfeasibleError{
			Blocking: []string{fmt.Sprintf("pinned %v", err)},
			Partial:  cfg.bestPartial(cs, seed, pool, weights, carry, m, expired),
		}
	}

	return cfg.expand(cs, current, pool, weights, carry, m, expired), nil
}

// expand grows a feasible base plan by greedy marginal-utility insertion,
// then refines it with local search.
func (cfg OptimizerConfig) expand(
	cs domain.Constraints,
	current *domain.Itinerary,
	pool []*domain.Stop,
	weights map[string]float64,
	carry map[string]struct{},
	m TravelMatrix,
	expired func() bool,
) *domain.Itinerary {
	// Candidates iterate in ID order so equal-utility runs are deterministic.
	candidates := make([]*domain.Stop, 0, len(pool))
	for _, s := range pool {
		if !cs.IsPinned(s.ID) && !cs.Excludes(s) {
			candidates = append(candidates, s)
		}
	}
	slices.SortFunc(candidates, func(a, b *domain.Stop) int {
		return compareStrings(a.ID, b.ID)
	})

	placed := make(map[string]struct{}, len(current.Stops))
	for _, s := range current.Stops {
		placed[s.Stop.ID] = struct{}{}
	}

	curUtility := cfg.planUtility(cs, current, weights, carry)

	// Greedy insertion: take the unplaced candidate with the highest
	// marginal utility at its best feasible position.
	maxStops := cfg.MaxStops
	if maxStops <= 0 {
		maxStops = 12
	}
	for len(current.Stops) < maxStops && !expired() {
		var (
			bestStop    *domain.Stop
			bestPlan    *domain.Itinerary
			bestGain    float64
			bestClose   time.Time
			anyFeasible bool
		)

		for _, cand := range candidates {
			if _, done := placed[cand.ID]; done {
				continue
			}

			var candPlan *domain.Itinerary
			candGain := 0.0
			for pos := 0; pos <= len(current.Stops); pos++ {
				next, _, _, err := CanInsert(cs, current, cand, pos, m)
				if err != nil {
					continue
				}
				gain := cfg.planUtility(cs, next, weights, carry) - curUtility
				if candPlan == nil || gain > candGain {
					candPlan, candGain = next, gain
				}
			}
			if candPlan == nil {
				continue
			}
			anyFeasible = true

			closeAt := effectiveClose(cs, cand)
			if bestStop == nil ||
				candGain > bestGain+budgetEpsilon ||
				(equalWithin(candGain, bestGain) && tighterDeadline(closeAt, bestClose, cand.ID, bestStop.ID)) {
				bestStop, bestPlan, bestGain, bestClose = cand, candPlan, candGain, closeAt
			}
		}

		if !anyFeasible || bestStop == nil || bestGain <= 0 {
			break
		}

		current = bestPlan
		curUtility += bestGain
		placed[bestStop.ID] = struct{}{}
	}

	current, curUtility = cfg.localSearch(cs, current, curUtility, weights, carry, m, expired)

	current.Utility = curUtility
	return current
}

// bestPartial builds the best feasible plan that honors as many of the
// pinned stops as possible, for reporting alongside an infeasibility. The
// least valuable pinned stop is shed until the seed schedules, then the
// remaining room is filled normally.
func (cfg OptimizerConfig) bestPartial(
	cs domain.Constraints,
	seed []*domain.Stop,
	pool []*domain.Stop,
	weights map[string]float64,
	carry map[string]struct{},
	m TravelMatrix,
	expired func() bool,
) *domain.Itinerary {
	seq := slices.Clone(seed)
	for {
		it, err := BuildSchedule(cs, seq, m)
		if err == nil {
			return cfg.expand(cs, it, pool, weights, carry, m, expired)
		}
		if len(seq) == 0 {
			return &domain.Itinerary{}
		}

		drop := 0
		for i := 1; i < len(seq); i++ {
			di, dd := cfg.dropScore(cs, seq[i], weights), cfg.dropScore(cs, seq[drop], weights)
			if di < dd || (di == dd && seq[i].ID < seq[drop].ID) {
				drop = i
			}
		}
		seq = append(seq[:drop], seq[drop+1:]...)
	}
}

// dropScore ranks a stop for removal: its interest value minus the share
// of budget and day it ties up. An expensive mediocre stop ranks below a
// cheap strong one even when their raw interest is close.
func (cfg OptimizerConfig) dropScore(cs domain.Constraints, s *domain.Stop, weights map[string]float64) float64 {
	v := stopScore(s, weights)
	if cs.Budget > 0 {
		v -= cfg.BudgetSlackPenaltyWeight * s.Cost / cs.Budget
	}
	if day := cs.DayEnd.Sub(cs.DayStart); day > 0 {
		v -= cfg.SlackPenaltyWeight * s.VisitDuration.Hours() / day.Hours()
	}
	return v
}

func equalWithin(a, b float64) bool {
	d := a - b
	return d < budgetEpsilon && d > -budgetEpsilon
}

// tighterDeadline prefers the earlier close time, then the smaller ID.
func tighterDeadline(a, b time.Time, aID, bID string) bool {
	if a.Before(b) {
		return true
	}
	if b.Before(a) {
		return false
	}
	return aID < bID
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// localSearch runs bounded first-improvement relocate and swap passes,
// accepting only feasibility-preserving moves that strictly increase
// utility. Pinned stops hold their positions.
func (cfg OptimizerConfig) localSearch(
	cs domain.Constraints,
	current *domain.Itinerary,
	curUtility float64,
	weights map[string]float64,
	carry map[string]struct{},
	m TravelMatrix,
	expired func() bool,
) (*domain.Itinerary, float64) {
	for pass := 0; pass < cfg.LocalSearchPasses; pass++ {
		improved := false
		n := len(current.Stops)

		// Relocate: move one unpinned stop to a different position.
		for i := 0; i < n && !expired(); i++ {
			if cs.IsPinned(current.Stops[i].Stop.ID) {
				continue
			}
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				seq := relocated(current, i, j)
				next, err := BuildSchedule(cs, seq, m)
				if err != nil {
					continue
				}
				if u := cfg.planUtility(cs, next, weights, carry); u > curUtility+budgetEpsilon {
					current, curUtility = next, u
					improved = true
					break
				}
			}
		}

		// Swap: exchange the order of two unpinned stops.
		n = len(current.Stops)
		for i := 0; i < n-1 && !expired(); i++ {
			if cs.IsPinned(current.Stops[i].Stop.ID) {
				continue
			}
			for j := i + 1; j < n; j++ {
				if cs.IsPinned(current.Stops[j].Stop.ID) {
					continue
				}
				seq := swapped(current, i, j)
				next, err := BuildSchedule(cs, seq, m)
				if err != nil {
					continue
				}
				if u := cfg.planUtility(cs, next, weights, carry); u > curUtility+budgetEpsilon {
					current, curUtility = next, u
					improved = true
					break
				}
			}
		}

		if !improved || expired() {
			break
		}
	}

	return current, curUtility
}

func relocated(it *domain.Itinerary, from, to int) []*domain.Stop {
	seq := make([]*domain.Stop, 0, len(it.Stops))
	for i, s := range it.Stops {
		if i != from {
			seq = append(seq, s.Stop)
		}
	}
	moved := it.Stops[from].Stop
	if to > len(seq) {
		to = len(seq)
	}
	seq = append(seq[:to], append([]*domain.Stop{moved}, seq[to:]...)...)
	return seq
}

func swapped(it *domain.Itinerary, i, j int) []*domain.Stop {
	seq := make([]*domain.Stop, len(it.Stops))
	for k, s := range it.Stops {
		seq[k] = s.Stop
	}
	seq[i], seq[j] = seq[j], seq[i]
	return seq
}
