package ports

import (
	"context"
	"time"

	"tour-planner-service/internal/domain"
)

// CandidateQuery describes what the planner needs from a candidate source.
// Day anchors opening-hours windows to the planning date.
type CandidateQuery struct {
	City         string
	Categories   []string
	Center       domain.Coordinates
	RadiusMeters int
	Limit        int
	Day          time.Time
}

// CandidateResult is a finite list of candidate stops. Truncated is set when
// the source returned fewer candidates than exist (partial page, degraded
// upstream); the planner works with what it has.
type CandidateResult struct {
	Stops     []*domain.Stop
	Truncated bool
}

// Port: a boundary for retrieving candidate stops from a place source.
type CandidateProvider interface {
	// ListCandidates returns candidate stops for the query. Failures wrap
	// domain.ErrCandidateLookupFailed; partial results are not an error.
	ListCandidates(ctx context.Context, q CandidateQuery) (CandidateResult, error)
}
