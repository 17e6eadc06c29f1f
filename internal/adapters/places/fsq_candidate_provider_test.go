package places

import (
	"context"
	"testing"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Art Museum", "culture"},
		{"History Museum", "culture"},
		{"Monument / Landmark", "culture"},
		{"French Restaurant", "food"},
		{"Café", "food"},
		{"Bakery", "food"},
		{"Park", "nature"},
		{"Botanical Garden", "nature"},
		{"Gift Shop", "shopping"},
		{"Flea Market", "shopping"},
		{"Cocktail Bar", "nightlife"},
		{"Movie Theater", "nightlife"},
		{"Observation Deck", "observation_deck"},
	}

	for _, tc := range cases {
		if got := normalizeCategory(tc.in); got != tc.want {
			t.Fatalf("normalizeCategory(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlaceToStop(t *testing.T) {
	p := fsqPlace{
		FsqID:      "abc123",
		Name:       "Musée d'Orsay",
		Popularity: 0.9,
		Price:      0,
	}
	p.Categories = []fsqCategory{{Name: "Art Museum"}}
	p.Geocodes.Main.Latitude = 48.8599
	p.Geocodes.Main.Longitude = 2.3266

	stop := placeToStop(p)
	if stop.ID != "abc123" {
		t.Fatalf("id = %q", stop.ID)
	}
	if len(stop.Categories) != 1 || stop.Categories[0] != "culture" {
		t.Fatalf("categories = %v", stop.Categories)
	}
	if stop.VisitDuration != 90*time.Minute {
		t.Fatalf("visit duration = %v", stop.VisitDuration)
	}
	if stop.Cost != 15 {
		t.Fatalf("cost = %v, want culture admission default", stop.Cost)
	}
	if stop.Popularity["culture"] != 0.9 {
		t.Fatalf("popularity = %v", stop.Popularity)
	}
	if stop.Location.Lat != 48.8599 {
		t.Fatalf("location = %+v", stop.Location)
	}
}

func TestCostForPrice(t *testing.T) {
	if got := costForPrice(2, nil); got != 25 {
		t.Fatalf("tier 2 = %v", got)
	}
	if got := costForPrice(0, []string{"nature"}); got != 0 {
		t.Fatalf("untiered nature = %v", got)
	}
	if got := costForPrice(0, []string{"food"}); got != 10 {
		t.Fatalf("untiered default = %v", got)
	}
}

func TestMockCandidateProviderLimit(t *testing.T) {
	stops := []*domain.Stop{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	m := NewMockCandidateProvider(stops)

	res, err := m.ListCandidates(context.Background(), ports.CandidateQuery{City: "Paris", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stops) != 2 || !res.Truncated {
		t.Fatalf("limit 2: stops=%d truncated=%v", len(res.Stops), res.Truncated)
	}

	res, err = m.ListCandidates(context.Background(), ports.CandidateQuery{City: "Paris"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stops) != 3 || res.Truncated {
		t.Fatalf("no limit: stops=%d truncated=%v", len(res.Stops), res.Truncated)
	}
}
