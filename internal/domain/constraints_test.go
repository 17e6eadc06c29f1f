package domain

import (
	"errors"
	"testing"
	"time"
)

func baseConstraints() Constraints {
	return Constraints{
		City:      "Paris",
		DayStart:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		DayEnd:    time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		Budget:    100,
		Mode:      ModeWalk,
		Interests: map[string]float64{"culture": 0.8, "food": 0.5},
	}
}

func TestConstraintsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Constraints)
	}{
		{"empty city", func(c *Constraints) { c.City = "" }},
		{"day end before start", func(c *Constraints) { c.DayEnd = c.DayStart.Add(-time.Hour) }},
		{"day end equals start", func(c *Constraints) { c.DayEnd = c.DayStart }},
		{"negative budget", func(c *Constraints) { c.Budget = -1 }},
		{"missing mode", func(c *Constraints) { c.Mode = "" }},
		{"interest weight above one", func(c *Constraints) { c.Interests["culture"] = 1.5 }},
		{"pinned empty id", func(c *Constraints) { c.Pinned = []PinnedStop{{StopID: ""}} }},
		{"pinned inverted window", func(c *Constraints) {
			c.Pinned = []PinnedStop{{StopID: "x", Window: &TimeWindow{
				Open:  time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC),
				Close: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			}}}
		}},
		{"pinned window outside day", func(c *Constraints) {
			c.Pinned = []PinnedStop{{StopID: "x", Window: &TimeWindow{
				Open:  time.Date(2026, 5, 1, 20, 30, 0, 0, time.UTC),
				Close: time.Date(2026, 5, 1, 21, 30, 0, 0, time.UTC),
			}}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cs := baseConstraints()
			tc.mutate(&cs)
			err := cs.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConstraint) {
				t.Fatalf("error %v does not wrap ErrInvalidConstraint", err)
			}
		})
	}

	if err := baseConstraints().Validate(); err != nil {
		t.Fatalf("valid constraints rejected: %v", err)
	}
}

func TestApplyUpdateBudget(t *testing.T) {
	cs := baseConstraints()

	next, err := cs.ApplyUpdate(FieldBudget, 40.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Budget != 40 {
		t.Fatalf("budget = %v, want 40", next.Budget)
	}
	if cs.Budget != 100 {
		t.Fatalf("receiver mutated: budget = %v", cs.Budget)
	}
}

func TestApplyUpdateRejectsInvalid(t *testing.T) {
	cs := baseConstraints()

	cases := []struct {
		field string
		value any
	}{
		{FieldBudget, -5.0},
		{FieldBudget, "cheap"},
		{FieldCity, ""},
		{FieldDayEnd, cs.DayStart.Add(-time.Hour)},
		{FieldMode, "teleport"},
		{FieldInterests, map[string]any{"culture": "high"}},
		{"favorite_color", "blue"},
	}

	for _, tc := range cases {
		got, err := cs.ApplyUpdate(tc.field, tc.value)
		if err == nil {
			t.Fatalf("field %q value %v: expected error", tc.field, tc.value)
		}
		if !errors.Is(err, ErrInvalidConstraint) {
			t.Fatalf("field %q: error %v does not wrap ErrInvalidConstraint", tc.field, err)
		}
		if got.Budget != cs.Budget || got.City != cs.City {
			t.Fatalf("field %q: rejected update altered the returned constraints", tc.field)
		}
	}
}

func TestApplyUpdateAcceptsRFC3339Timestamps(t *testing.T) {
	cs := baseConstraints()

	next, err := cs.ApplyUpdate(FieldDayEnd, "2026-05-01T18:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	if !next.DayEnd.Equal(want) {
		t.Fatalf("day end = %v, want %v", next.DayEnd, want)
	}
}

func TestApplyUpdatePinnedFromJSONShape(t *testing.T) {
	cs := baseConstraints()

	next, err := cs.ApplyUpdate(FieldPinned, []any{
		map[string]any{
			"stop_id": "r-bistro",
			"window": map[string]any{
				"open":  "2026-05-01T12:30:00Z",
				"close": "2026-05-01T14:00:00Z",
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next.Pinned) != 1 || next.Pinned[0].StopID != "r-bistro" {
		t.Fatalf("pinned = %+v", next.Pinned)
	}
	w := next.Pinned[0].Window
	if w == nil || !w.Open.Equal(time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("pinned window = %+v", w)
	}
}

func TestApplyUpdateDoesNotAliasInterests(t *testing.T) {
	cs := baseConstraints()

	next, err := cs.ApplyUpdate(FieldInterests, map[string]float64{"nature": 0.9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next.Interests["nature"] = 0.1
	if cs.Interests["nature"] != 0 {
		t.Fatalf("update aliased the original interests map")
	}

	again, err := cs.ApplyUpdate(FieldBudget, 50.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again.Interests["culture"] = 0
	if cs.Interests["culture"] != 0.8 {
		t.Fatalf("clone shares the interests map with the original")
	}
}

func TestDiff(t *testing.T) {
	cs := baseConstraints()

	if d := Diff(cs, cs.clone()); !d.Empty() {
		t.Fatalf("identical constraints produced diff %+v", d)
	}

	lower, err := cs.ApplyUpdate(FieldBudget, 40.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := Diff(cs, lower)
	if !d.Has(FieldBudget) || !d.BudgetReduced {
		t.Fatalf("budget reduction diff = %+v", d)
	}
	if !d.NarrowsOnly() {
		t.Fatalf("budget reduction should be narrows-only")
	}

	higher, err := cs.ApplyUpdate(FieldBudget, 200.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := Diff(cs, higher); d.NarrowsOnly() {
		t.Fatalf("budget increase must not be narrows-only")
	}

	shorter, err := cs.ApplyUpdate(FieldDayEnd, cs.DayEnd.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d = Diff(cs, shorter)
	if !d.Has(FieldDayEnd) || !d.WindowNarrowed || !d.NarrowsOnly() {
		t.Fatalf("narrowed day window diff = %+v", d)
	}

	taxi, err := cs.ApplyUpdate(FieldMode, "taxi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d = Diff(cs, taxi)
	if !d.Has(FieldMode) || d.NarrowsOnly() {
		t.Fatalf("mode change diff = %+v", d)
	}
}
