package services

import (
	"strings"
	"testing"
	"time"

	"tour-planner-service/internal/domain"
)

func at(h, m int) time.Time {
	return time.Date(2026, 5, 1, h, m, 0, 0, time.UTC)
}

func dayConstraints() domain.Constraints {
	return domain.Constraints{
		City:      "Paris",
		DayStart:  at(9, 0),
		DayEnd:    at(18, 0),
		Budget:    100,
		Mode:      domain.ModeWalk,
		Interests: map[string]float64{"culture": 0.8},
	}
}

// uniformMatrix connects every ordered pair of stops with the same leg.
func uniformMatrix(stops []*domain.Stop, d time.Duration, cost float64) TravelMatrix {
	m := make(TravelMatrix)
	for _, from := range stops {
		for _, to := range stops {
			if from.ID == to.ID {
				continue
			}
			m[matrixKey(from.ID, to.ID)] = domain.TravelLeg{Mode: domain.ModeWalk, Duration: d, Cost: cost}
		}
	}
	return m
}

func TestBuildScheduleTimingAndSlack(t *testing.T) {
	a := &domain.Stop{ID: "a", Name: "A", VisitDuration: time.Hour}
	c := &domain.Stop{ID: "c", Name: "C", VisitDuration: 30 * time.Minute,
		Window: &domain.TimeWindow{Open: at(11, 0), Close: at(11, 30)}}
	m := uniformMatrix([]*domain.Stop{a, c}, 10*time.Minute, 0)

	it, err := BuildSchedule(dayConstraints(), []*domain.Stop{a, c}, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := it.Stops[0].ArriveAt; !got.Equal(at(9, 0)) {
		t.Fatalf("first arrival = %v, want 09:00", got)
	}
	if got := it.Stops[0].DepartAt; !got.Equal(at(10, 0)) {
		t.Fatalf("first departure = %v, want 10:00", got)
	}
	// Travel lands at 10:10; the visit waits for the window to open.
	if got := it.Stops[1].ArriveAt; !got.Equal(at(11, 0)) {
		t.Fatalf("second arrival = %v, want 11:00", got)
	}
	if it.Slack != 50*time.Minute {
		t.Fatalf("slack = %v, want 50m", it.Slack)
	}
	if it.TotalTravel != 10*time.Minute {
		t.Fatalf("travel = %v, want 10m", it.TotalTravel)
	}
	if it.Stops[0].Leg == nil || it.Stops[1].Leg != nil {
		t.Fatalf("leg placement wrong: %+v", it.Stops)
	}
}

// Inserting a stop must re-time everything after it: here the inserted stop
// is fine where it lands, and so are its direct neighbors, but the shifted
// arrival pushes a stop two positions downstream past its closing time.
func TestCanInsertRejectsDownstreamWindowMiss(t *testing.T) {
	a := &domain.Stop{ID: "a", Name: "A", VisitDuration: time.Hour}
	b := &domain.Stop{ID: "b", Name: "B", VisitDuration: 90 * time.Minute}
	c := &domain.Stop{ID: "c", Name: "C", VisitDuration: 30 * time.Minute,
		Window: &domain.TimeWindow{Open: at(11, 0), Close: at(11, 30)}}
	cs := dayConstraints()
	m := uniformMatrix([]*domain.Stop{a, b, c}, 10*time.Minute, 0)

	current, err := BuildSchedule(cs, []*domain.Stop{a, c}, m)
	if err != nil {
		t.Fatalf("base plan: %v", err)
	}

	// The same stop appended after the constrained one is fine.
	if _, _, _, err := CanInsert(cs, current, b, 2, m); err != nil {
		t.Fatalf("append after c: %v", err)
	}

	// Between a and c it pushes c's arrival to 11:50, past close.
	_, _, _, err = CanInsert(cs, current, b, 1, m)
	if err == nil {
		t.Fatalf("expected downstream window miss")
	}
	if !strings.Contains(err.Error(), `"C"`) {
		t.Fatalf("error should name the downstream stop, got: %v", err)
	}
}

func TestBuildScheduleEnforcesBudget(t *testing.T) {
	a := &domain.Stop{ID: "a", Name: "A", VisitDuration: time.Hour, Cost: 60}
	b := &domain.Stop{ID: "b", Name: "B", VisitDuration: time.Hour, Cost: 50}
	m := uniformMatrix([]*domain.Stop{a, b}, 10*time.Minute, 0)

	_, err := BuildSchedule(dayConstraints(), []*domain.Stop{a, b}, m)
	if err == nil || !strings.Contains(err.Error(), "exceeds budget") {
		t.Fatalf("expected budget error, got: %v", err)
	}
}

func TestBuildScheduleCountsTravelCost(t *testing.T) {
	a := &domain.Stop{ID: "a", Name: "A", VisitDuration: time.Hour, Cost: 10}
	b := &domain.Stop{ID: "b", Name: "B", VisitDuration: time.Hour, Cost: 10}
	m := uniformMatrix([]*domain.Stop{a, b}, 10*time.Minute, 2.5)

	it, err := BuildSchedule(dayConstraints(), []*domain.Stop{a, b}, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.TotalCost != 22.5 {
		t.Fatalf("total cost = %v, want 22.5", it.TotalCost)
	}
}

func TestBuildScheduleRejectsDayOverrun(t *testing.T) {
	long := &domain.Stop{ID: "a", Name: "A", VisitDuration: 10 * time.Hour}

	_, err := BuildSchedule(dayConstraints(), []*domain.Stop{long}, uniformMatrix(nil, 0, 0))
	if err == nil || !strings.Contains(err.Error(), "after the day ends") {
		t.Fatalf("expected day overrun error, got: %v", err)
	}
}

func TestBuildScheduleMissingRoute(t *testing.T) {
	a := &domain.Stop{ID: "a", Name: "A", VisitDuration: time.Hour}
	b := &domain.Stop{ID: "b", Name: "B", VisitDuration: time.Hour}

	_, err := BuildSchedule(dayConstraints(), []*domain.Stop{a, b}, TravelMatrix{})
	if err == nil || !strings.Contains(err.Error(), "no route") {
		t.Fatalf("expected missing route error, got: %v", err)
	}
}

func TestBuildScheduleEmptySequence(t *testing.T) {
	it, err := BuildSchedule(dayConstraints(), nil, TravelMatrix{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(it.Stops) != 0 || it.TotalCost != 0 {
		t.Fatalf("empty schedule = %+v", it)
	}
}
