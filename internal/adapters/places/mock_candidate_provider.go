package places

import (
	"context"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

type MockCandidateProvider struct {
	Stops     []*domain.Stop
	Truncated bool
	Err       error
}

func NewMockCandidateProvider(stops []*domain.Stop) *MockCandidateProvider {
	return &MockCandidateProvider{Stops: stops}
}

func (m *MockCandidateProvider) ListCandidates(ctx context.Context, q ports.CandidateQuery) (ports.CandidateResult, error) {
	if m.Err != nil {
		return ports.CandidateResult{}, m.Err
	}

	out := make([]*domain.Stop, 0, len(m.Stops))
	for _, s := range m.Stops {
		if q.Limit > 0 && len(out) >= q.Limit {
			return ports.CandidateResult{Stops: out, Truncated: true}, nil
		}
		out = append(out, s)
	}
	return ports.CandidateResult{Stops: out, Truncated: m.Truncated}, nil
}
