package domain

import (
	"maps"
	"slices"
)

// ConstraintDiff is the minimal set of fields that changed between two
// constraint sets. It drives the repair engine's rebuild-scope decision:
// a diff that only narrows the plan admits a cheap local trim, anything
// else forces a full re-optimization.
type ConstraintDiff struct {
	Fields []string

	BudgetReduced  bool
	WindowNarrowed bool
}

func (d ConstraintDiff) Empty() bool { return len(d.Fields) == 0 }

func (d ConstraintDiff) Has(field string) bool { return slices.Contains(d.Fields, field) }

// NarrowsOnly reports whether every changed field shrinks the plan's room
// (budget reduced, day window narrowed) without touching anything else.
func (d ConstraintDiff) NarrowsOnly() bool {
	if d.Empty() {
		return false
	}
	for _, f := range d.Fields {
		switch f {
		case FieldBudget:
			if !d.BudgetReduced {
				return false
			}
		case FieldDayStart, FieldDayEnd:
			if !d.WindowNarrowed {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Diff computes the changed fields between two constraint sets.
func Diff(old, new Constraints) ConstraintDiff {
	var d ConstraintDiff
	add := func(field string) { d.Fields = append(d.Fields, field) }

	if old.City != new.City {
		add(FieldCity)
	}
	if !old.DayStart.Equal(new.DayStart) {
		add(FieldDayStart)
	}
	if !old.DayEnd.Equal(new.DayEnd) {
		add(FieldDayEnd)
	}
	if old.Budget != new.Budget {
		add(FieldBudget)
		d.BudgetReduced = new.Budget < old.Budget
	}
	if old.Mode != new.Mode {
		add(FieldMode)
	}
	if !maps.Equal(old.Interests, new.Interests) {
		add(FieldInterests)
	}
	if !pinnedEqual(old.Pinned, new.Pinned) {
		add(FieldPinned)
	}
	if !slices.Equal(old.ExcludedCategories, new.ExcludedCategories) {
		add(FieldExcludeCategories)
	}
	if !slices.Equal(old.ExcludedStops, new.ExcludedStops) {
		add(FieldExcludeStops)
	}

	if d.Has(FieldDayStart) || d.Has(FieldDayEnd) {
		narrowed := !new.DayStart.Before(old.DayStart) && !new.DayEnd.After(old.DayEnd)
		d.WindowNarrowed = narrowed
	}

	return d
}

func pinnedEqual(a, b []PinnedStop) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StopID != b[i].StopID {
			return false
		}
		aw, bw := a[i].Window, b[i].Window
		if (aw == nil) != (bw == nil) {
			return false
		}
		if aw != nil && (!aw.Open.Equal(bw.Open) || !aw.Close.Equal(bw.Close)) {
			return false
		}
	}
	return true
}
