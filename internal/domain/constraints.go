package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Recognized constraint field names for ApplyUpdate and Diff.
const (
	FieldCity              = "city"
	FieldDayStart          = "day_start"
	FieldDayEnd            = "day_end"
	FieldBudget            = "budget"
	FieldMode              = "mode"
	FieldInterests         = "interests"
	FieldPinned            = "pinned"
	FieldExcludeCategories = "exclude_categories"
	FieldExcludeStops      = "exclude_stops"
)

// PinnedStop is a stop the user insists on, optionally with a required
// visit window.
type PinnedStop struct {
	StopID string
	Window *TimeWindow
}

// Constraints is the canonical structured form of a user's current planning
// requirements. Values are immutable: updates go through ApplyUpdate, which
// returns a new value and leaves the receiver untouched.
type Constraints struct {
	City      string
	DayStart  time.Time
	DayEnd    time.Time
	Budget    float64
	Mode      TransportMode
	Interests map[string]float64

	// Pinned stops keep the order the user gave them.
	Pinned []PinnedStop

	ExcludedCategories []string
	ExcludedStops      []string
}

// Validate checks the whole constraint set against its invariants.
func (c Constraints) Validate() error {
	if c.City == "" {
		return fmt.Errorf("validate constraints: %w: city must be non-empty", ErrInvalidConstraint)
	}
	if !c.DayEnd.After(c.DayStart) {
		return fmt.Errorf("validate constraints: %w: day end must be after day start", ErrInvalidConstraint)
	}
	if c.Budget < 0 {
		return fmt.Errorf("validate constraints: %w: budget must be non-negative", ErrInvalidConstraint)
	}
	if c.Mode == "" {
		return fmt.Errorf("validate constraints: %w: transport mode is required", ErrInvalidConstraint)
	}
	for cat, w := range c.Interests {
		if w < 0 || w > 1 {
			return fmt.Errorf("validate constraints: %w: interest weight for %q must be in [0,1]", ErrInvalidConstraint, cat)
		}
	}
	for _, p := range c.Pinned {
		if p.StopID == "" {
			return fmt.Errorf("validate constraints: %w: pinned stop id must be non-empty", ErrInvalidConstraint)
		}
		if p.Window != nil {
			if !p.Window.Valid() {
				return fmt.Errorf("validate constraints: %w: pinned stop %q window close must be after open", ErrInvalidConstraint, p.StopID)
			}
			if !p.Window.Within(c.DayStart, c.DayEnd) {
				return fmt.Errorf("validate constraints: %w: pinned stop %q window lies outside the day window", ErrInvalidConstraint, p.StopID)
			}
		}
	}
	return nil
}

// PinnedWindow returns the required window for a stop ID, if pinned with one.
func (c Constraints) PinnedWindow(stopID string) *TimeWindow {
	for _, p := range c.Pinned {
		if p.StopID == stopID {
			return p.Window
		}
	}
	return nil
}

// IsPinned reports whether the stop ID appears in the pinned list.
func (c Constraints) IsPinned(stopID string) bool {
	return slices.ContainsFunc(c.Pinned, func(p PinnedStop) bool { return p.StopID == stopID })
}

// Excludes reports whether the stop is rejected by the exclusion lists.
func (c Constraints) Excludes(s *Stop) bool {
	if slices.Contains(c.ExcludedStops, s.ID) {
		return true
	}
	for _, cat := range c.ExcludedCategories {
		if s.HasCategory(cat) {
			return true
		}
	}
	return false
}

// clone deep-copies the mutable members so updates never alias.
func (c Constraints) clone() Constraints {
	out := c
	out.Interests = maps.Clone(c.Interests)
	out.Pinned = make([]PinnedStop, len(c.Pinned))
	for i, p := range c.Pinned {
		out.Pinned[i] = PinnedStop{StopID: p.StopID}
		if p.Window != nil {
			w := *p.Window
			out.Pinned[i].Window = &w
		}
	}
	out.ExcludedCategories = slices.Clone(c.ExcludedCategories)
	out.ExcludedStops = slices.Clone(c.ExcludedStops)
	return out
}

// ApplyUpdate validates a single-field change and returns the updated
// constraint set. The receiver is never modified; on failure the error wraps
// ErrInvalidConstraint and the receiver remains the current truth.
func (c Constraints) ApplyUpdate(field string, value any) (Constraints, error) {
	next := c.clone()

	switch field {
	case FieldCity:
		s, err := asString(field, value)
		if err != nil {
			return c, err
		}
		next.City = s
	case FieldDayStart:
		t, err := asTime(field, value)
		if err != nil {
			return c, err
		}
		next.DayStart = t
	case FieldDayEnd:
		t, err := asTime(field, value)
		if err != nil {
			return c, err
		}
		next.DayEnd = t
	case FieldBudget:
		f, err := asFloat(field, value)
		if err != nil {
			return c, err
		}
		next.Budget = f
	case FieldMode:
		s, err := asString(field, value)
		if err != nil {
			return c, err
		}
		mode, err := ParseTransportMode(s)
		if err != nil {
			return c, err
		}
		next.Mode = mode
	case FieldInterests:
		w, err := asWeights(field, value)
		if err != nil {
			return c, err
		}
		next.Interests = w
	case FieldPinned:
		p, err := asPinned(field, value)
		if err != nil {
			return c, err
		}
		next.Pinned = p
	case FieldExcludeCategories:
		xs, err := asStrings(field, value)
		if err != nil {
			return c, err
		}
		next.ExcludedCategories = xs
	case FieldExcludeStops:
		xs, err := asStrings(field, value)
		if err != nil {
			return c, err
		}
		next.ExcludedStops = xs
	default:
		return c, fmt.Errorf("apply update: %w: unknown field %q", ErrInvalidConstraint, field)
	}

	if err := next.Validate(); err != nil {
		return c, fmt.Errorf("apply update %s: %w", field, err)
	}
	return next, nil
}

func asString(field string, v any) (string, error) {
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", fmt.Errorf("apply update: %w: %s must be a non-empty string", ErrInvalidConstraint, field)
}

func asTime(field string, v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("apply update: %w: %s must be a timestamp (RFC 3339)", ErrInvalidConstraint, field)
}

func asFloat(field string, v any) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	}
	return 0, fmt.Errorf("apply update: %w: %s must be a number", ErrInvalidConstraint, field)
}

func asWeights(field string, v any) (map[string]float64, error) {
	switch m := v.(type) {
	case map[string]float64:
		return maps.Clone(m), nil
	case map[string]any:
		out := make(map[string]float64, len(m))
		for k, raw := range m {
			f, err := asFloat(field, raw)
			if err != nil {
				return nil, err
			}
			out[k] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("apply update: %w: %s must map categories to weights", ErrInvalidConstraint, field)
}

func asStrings(field string, v any) ([]string, error) {
	switch xs := v.(type) {
	case []string:
		return slices.Clone(xs), nil
	case []any:
		out := make([]string, 0, len(xs))
		for _, raw := range xs {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("apply update: %w: %s must be a list of strings", ErrInvalidConstraint, field)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("apply update: %w: %s must be a list of strings", ErrInvalidConstraint, field)
}

func asPinned(field string, v any) ([]PinnedStop, error) {
	switch ps := v.(type) {
	case []PinnedStop:
		out := make([]PinnedStop, len(ps))
		copy(out, ps)
		return out, nil
	case []any:
		out := make([]PinnedStop, 0, len(ps))
		for _, raw := range ps {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("apply update: %w: %s entries must be objects", ErrInvalidConstraint, field)
			}
			id, ok := m["stop_id"].(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("apply update: %w: pinned stop_id must be a non-empty string", ErrInvalidConstraint)
			}
			p := PinnedStop{StopID: id}
			if w, ok := m["window"].(map[string]any); ok {
				open, err := asTime(field, w["open"])
				if err != nil {
					return nil, err
				}
				closeAt, err := asTime(field, w["close"])
				if err != nil {
					return nil, err
				}
				p.Window = &TimeWindow{Open: open, Close: closeAt}
			}
			out = append(out, p)
		}
		return out, nil
	}
	return nil, fmt.Errorf("apply update: %w: %s must be a list of pinned stops", ErrInvalidConstraint, field)
}
