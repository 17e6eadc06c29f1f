package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConstraint marks a single rejected constraint update. The
// session keeps its current constraints; the caller corrects and retries.
var ErrInvalidConstraint = errors.New("invalid constraint")

// ErrCandidateLookupFailed marks an unreachable candidate source. Planning
// degrades to whatever candidates are already known; never fatal to a session.
var ErrCandidateLookupFailed = errors.New("candidate lookup failed")

// ErrRouteUnavailable marks a single travel edge the provider could not
// resolve. The edge is excluded from consideration; planning continues.
var ErrRouteUnavailable = errors.New("route unavailable")

// ErrRepairExhausted signals that local repair could not restore feasibility.
// It is always converted to a full re-optimization before anything is
// reported to the caller.
var ErrRepairExhausted = errors.New("repair exhausted")

// InfeasibleError reports that no itinerary satisfies the current
// constraints. Blocking names the specific requirements that could not be
// met; Partial carries the best itinerary found, possibly empty, so the
// caller can show what was achievable.
type InfeasibleError struct {
	Blocking []string
	Partial  *Itinerary
}

func (e *InfeasibleError) Error() string {
	if len(e.Blocking) == 0 {
		return "infeasible constraints"
	}
	return fmt.Sprintf("infeasible constraints: %s", strings.Join(e.Blocking, "; "))
}
