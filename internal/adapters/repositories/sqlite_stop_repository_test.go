package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

const seedJSON = `[
	{
		"stop_id": "m-louvre",
		"city": "Paris",
		"name": "Louvre",
		"lat": 48.8606,
		"lon": 2.3376,
		"categories": ["culture"],
		"visit_minutes": 90,
		"cost": 15,
		"open_minutes": 540,
		"close_minutes": 1080,
		"popularity": {"culture": 0.95}
	},
	{
		"stop_id": "r-bistro",
		"city": "Paris",
		"name": "Bistro",
		"lat": 48.8553,
		"lon": 2.3602,
		"categories": ["food"],
		"visit_minutes": 60,
		"cost": 25,
		"popularity": {"food": 0.85}
	},
	{
		"stop_id": "x-rome",
		"city": "Rome",
		"name": "Colosseum",
		"lat": 41.8902,
		"lon": 12.4922,
		"categories": ["culture"],
		"visit_minutes": 90,
		"cost": 18,
		"popularity": {"culture": 0.9}
	}
]`

func seededDB(t *testing.T) *SqliteStopRepository {
	t.Helper()

	db := newTestDB(t)
	path := filepath.Join(t.TempDir(), "stops.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(db, path); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewSqliteStopRepository(db)
}

func TestSqliteStopRepositoryListCandidates(t *testing.T) {
	repo := seededDB(t)

	day := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	res, err := repo.ListCandidates(context.Background(), ports.CandidateQuery{City: "Paris", Day: day})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Stops) != 2 {
		t.Fatalf("stops = %d, want the 2 Paris rows", len(res.Stops))
	}
	if res.Truncated {
		t.Fatalf("result should not be truncated")
	}

	louvre := res.Stops[0]
	if louvre.ID != "m-louvre" {
		t.Fatalf("first stop = %q, want m-louvre (ID order)", louvre.ID)
	}
	if louvre.VisitDuration != 90*time.Minute {
		t.Fatalf("visit duration = %v", louvre.VisitDuration)
	}
	if louvre.Cost != 15 {
		t.Fatalf("cost = %v", louvre.Cost)
	}
	if louvre.Popularity["culture"] != 0.95 {
		t.Fatalf("popularity = %v", louvre.Popularity)
	}

	// Opening minutes anchor to midnight of the planning day.
	if louvre.Window == nil {
		t.Fatalf("louvre should carry a window")
	}
	wantOpen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	wantClose := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	if !louvre.Window.Open.Equal(wantOpen) || !louvre.Window.Close.Equal(wantClose) {
		t.Fatalf("window = %+v", louvre.Window)
	}

	// Rows without stored hours come back unconstrained.
	if res.Stops[1].Window != nil {
		t.Fatalf("bistro window = %+v, want nil", res.Stops[1].Window)
	}
}

func TestSqliteStopRepositoryHonorsLimit(t *testing.T) {
	repo := seededDB(t)

	res, err := repo.ListCandidates(context.Background(), ports.CandidateQuery{
		City:  "Paris",
		Day:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Limit: 1,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Stops) != 1 || !res.Truncated {
		t.Fatalf("limit 1: stops=%d truncated=%v", len(res.Stops), res.Truncated)
	}
}

func TestSqliteStopRepositoryRequiresCity(t *testing.T) {
	repo := seededDB(t)

	_, err := repo.ListCandidates(context.Background(), ports.CandidateQuery{})
	if !errors.Is(err, domain.ErrCandidateLookupFailed) {
		t.Fatalf("expected ErrCandidateLookupFailed for empty city, got %v", err)
	}

	res, err := repo.ListCandidates(context.Background(), ports.CandidateQuery{City: "Atlantis", Day: time.Now()})
	if err != nil {
		t.Fatalf("unknown city should return empty, got error: %v", err)
	}
	if len(res.Stops) != 0 {
		t.Fatalf("unknown city stops = %d", len(res.Stops))
	}
}

func TestSeedFromJSONValidation(t *testing.T) {
	db := newTestDB(t)
	path := filepath.Join(t.TempDir(), "bad.json")

	bad := `[{"stop_id": "", "city": "Paris", "name": "X", "lat": 0, "lon": 0, "categories": [], "visit_minutes": 60, "cost": 0, "popularity": {}}]`
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(db, path); err == nil {
		t.Fatalf("empty stop_id must be rejected")
	}

	if err := SeedFromJSON(db, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("missing file must be rejected")
	}
}
