package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-planner-service/internal/adapters/places"
	"tour-planner-service/internal/adapters/travel"
	"tour-planner-service/internal/domain"
)

// memPrefStore is an in-memory PreferenceStore for planner tests.
type memPrefStore struct {
	mu      sync.Mutex
	digests map[string]int
	weights map[string]float64
}

func (m *memPrefStore) Record(ctx context.Context, userID, city string, it *domain.Itinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.digests == nil {
		m.digests = make(map[string]int)
	}
	m.digests[userID+"|"+city+"|"+it.Digest()]++
	return nil
}

func (m *memPrefStore) WeightsFor(ctx context.Context, userID, city string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.weights, nil
}

func newTestPlanner(prefs *memPrefStore) *Planner {
	return NewPlanner(
		places.NewMockCandidateProvider(parisPool()),
		travel.NewEstimateTravelProvider(),
		prefs,
		DefaultOptimizerConfig(),
	)
}

func TestPlannerSessionLifecycle(t *testing.T) {
	prefs := &memPrefStore{}
	p := newTestPlanner(prefs)
	ctx := context.Background()

	id, it, err := p.StartSession(ctx, "user-1", parisConstraints())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotEmpty(t, it.Stops)
	assert.LessOrEqual(t, it.TotalCost, 100.0)

	got, state, err := p.Itinerary(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlanned, state)
	assert.Equal(t, it.StopIDs(), got.StopIDs())

	prefs.mu.Lock()
	recorded := len(prefs.digests)
	prefs.mu.Unlock()
	assert.GreaterOrEqual(t, recorded, 1, "accepted plan should be recorded")
}

func TestPlannerStartSessionRejectsInvalidConstraints(t *testing.T) {
	p := newTestPlanner(&memPrefStore{})

	cs := parisConstraints()
	cs.Budget = -1

	_, _, err := p.StartSession(context.Background(), "user-1", cs)
	require.ErrorIs(t, err, domain.ErrInvalidConstraint)
}

func TestPlannerUpdateBudgetRepairs(t *testing.T) {
	p := newTestPlanner(&memPrefStore{})
	ctx := context.Background()

	id, initial, err := p.StartSession(ctx, "user-1", parisConstraints())
	require.NoError(t, err)

	repaired, err := p.Update(ctx, id, domain.FieldBudget, 40.0)
	require.NoError(t, err)
	assert.LessOrEqual(t, repaired.TotalCost, 40.0)
	assert.Less(t, len(repaired.Stops), len(initial.Stops))

	// Every surviving stop was in the initial plan.
	for _, stopID := range repaired.StopIDs() {
		assert.True(t, initial.HasStop(stopID), "repair introduced stop %s", stopID)
	}
}

func TestPlannerUpdateIsIdempotent(t *testing.T) {
	p := newTestPlanner(&memPrefStore{})
	ctx := context.Background()

	id, _, err := p.StartSession(ctx, "user-1", parisConstraints())
	require.NoError(t, err)

	first, err := p.Update(ctx, id, domain.FieldBudget, 40.0)
	require.NoError(t, err)

	// Same value again changes nothing and replans nothing.
	second, err := p.Update(ctx, id, domain.FieldBudget, 40.0)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, first.StopIDs(), second.StopIDs())
}

func TestPlannerUpdateRejectsInvalidValue(t *testing.T) {
	p := newTestPlanner(&memPrefStore{})
	ctx := context.Background()

	id, it, err := p.StartSession(ctx, "user-1", parisConstraints())
	require.NoError(t, err)

	_, err = p.Update(ctx, id, domain.FieldBudget, -5.0)
	require.ErrorIs(t, err, domain.ErrInvalidConstraint)

	// Constraints and plan are untouched by the rejected update.
	cs, err := p.Constraints(id)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cs.Budget)

	got, state, err := p.Itinerary(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlanned, state)
	assert.Equal(t, it.StopIDs(), got.StopIDs())
}

func TestPlannerInfeasibleThenRelaxed(t *testing.T) {
	p := newTestPlanner(&memPrefStore{})
	ctx := context.Background()

	cs := parisConstraints()
	cs.Pinned = []domain.PinnedStop{{StopID: "r-bistro"}}

	id, _, err := p.StartSession(ctx, "user-1", cs)
	require.NoError(t, err)

	// The pinned restaurant alone costs 25; a 10 budget cannot hold it.
	_, err = p.Update(ctx, id, domain.FieldBudget, 10.0)
	require.Error(t, err)
	var infeasible *domain.InfeasibleError
	require.ErrorAs(t, err, &infeasible)

	_, state, err := p.Itinerary(id)
	require.NoError(t, err)
	assert.Equal(t, StateInfeasible, state)

	// Relaxing the budget recovers a plan with the pinned stop.
	it, err := p.Update(ctx, id, domain.FieldBudget, 120.0)
	require.NoError(t, err)
	assert.True(t, it.HasStop("r-bistro"))

	_, state, err = p.Itinerary(id)
	require.NoError(t, err)
	assert.Equal(t, StatePlanned, state)
}

func TestPlannerUnknownSession(t *testing.T) {
	p := newTestPlanner(&memPrefStore{})

	_, _, err := p.Itinerary("nope")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = p.Update(context.Background(), "nope", domain.FieldBudget, 50.0)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

// Moving the day start into rush hour must re-time the travel legs: taxi
// estimates depend on departure time, so the stale matrix from the old start
// would under-report travel.
func TestPlannerUpdateDayStartRetimesTravel(t *testing.T) {
	louvre := &domain.Stop{
		ID:            "m-louvre",
		Name:          "m-louvre",
		Location:      domain.Coordinates{Lat: 48.8606, Lon: 2.3376},
		Categories:    []string{"culture"},
		VisitDuration: time.Hour,
		Popularity:    map[string]float64{"culture": 0.95},
	}
	montmartre := &domain.Stop{
		ID:            "m-montmartre",
		Name:          "m-montmartre",
		Location:      domain.Coordinates{Lat: 48.8867, Lon: 2.3431},
		Categories:    []string{"culture"},
		VisitDuration: time.Hour,
		Popularity:    map[string]float64{"culture": 0.9},
	}
	p := NewPlanner(
		places.NewMockCandidateProvider([]*domain.Stop{louvre, montmartre}),
		travel.NewEstimateTravelProvider(),
		nil,
		DefaultOptimizerConfig(),
	)
	ctx := context.Background()

	cs := parisConstraints()
	cs.DayStart = at(11, 0)
	cs.DayEnd = at(16, 0)
	cs.Mode = domain.ModeTaxi
	cs.Interests = map[string]float64{"culture": 1}

	id, initial, err := p.StartSession(ctx, "user-1", cs)
	require.NoError(t, err)
	require.Len(t, initial.Stops, 2)

	// 08:00 departures hit the morning peak slowdown.
	repaired, err := p.Update(ctx, id, domain.FieldDayStart, at(8, 0).Format(time.RFC3339))
	require.NoError(t, err)
	require.Len(t, repaired.Stops, 2)
	assert.Greater(t, repaired.TotalTravel, initial.TotalTravel,
		"peak-hour departures should lengthen the taxi legs")
}

func TestPlannerDegradesOnCandidateLookupFailure(t *testing.T) {
	provider := places.NewMockCandidateProvider(nil)
	provider.Err = domain.ErrCandidateLookupFailed
	p := NewPlanner(provider, travel.NewEstimateTravelProvider(), nil, DefaultOptimizerConfig())

	// No candidates at all: the session still starts and plans an empty
	// day rather than failing.
	id, it, err := p.StartSession(context.Background(), "user-1", parisConstraints())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Empty(t, it.Stops)
}
