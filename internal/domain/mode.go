package domain

import (
	"fmt"
	"strings"
)

// TransportMode selects how travel legs between stops are costed.
type TransportMode string

const (
	ModeWalk    TransportMode = "walk"
	ModeTransit TransportMode = "transit"
	ModeTaxi    TransportMode = "taxi"
	ModeMixed   TransportMode = "mixed"
)

// ParseTransportMode normalizes free-form mode input to one of the
// recognized modes. Unqualified vehicle words map to taxi.
func ParseTransportMode(s string) (TransportMode, error) {
	m := strings.ToLower(strings.TrimSpace(s))
	switch {
	case m == "":
		return "", fmt.Errorf("parse transport mode: %w: mode must be non-empty", ErrInvalidConstraint)
	case strings.Contains(m, "walk") || strings.Contains(m, "foot"):
		return ModeWalk, nil
	case strings.Contains(m, "transit") || strings.Contains(m, "bus") || strings.Contains(m, "train") || strings.Contains(m, "metro"):
		return ModeTransit, nil
	case strings.Contains(m, "taxi") || strings.Contains(m, "car") || strings.Contains(m, "driv"):
		return ModeTaxi, nil
	case m == "mixed" || m == "any":
		return ModeMixed, nil
	}
	return "", fmt.Errorf("parse transport mode: %w: unrecognized mode %q", ErrInvalidConstraint, s)
}
