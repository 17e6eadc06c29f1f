package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the database schema. The statements are portable between
// SQLite (local runs) and Postgres (dbtool).
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		stop_id TEXT PRIMARY KEY,
		city TEXT NOT NULL,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		categories TEXT NOT NULL,
		visit_minutes INTEGER NOT NULL,
		cost REAL NOT NULL,
		open_minutes INTEGER,
		close_minutes INTEGER,
		popularity TEXT NOT NULL
	);
	`

	createPreferenceWeightsQuery := `
	CREATE TABLE IF NOT EXISTS preference_weights (
		user_id TEXT NOT NULL,
		city TEXT NOT NULL,
		category TEXT NOT NULL,
		visits INTEGER NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (user_id, city, category)
	);
	`

	createItineraryHistoryQuery := `
	CREATE TABLE IF NOT EXISTS itinerary_history (
		user_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		city TEXT NOT NULL,
		stop_ids TEXT NOT NULL,
		total_cost REAL NOT NULL,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (user_id, digest)
	);
	`

	createTravelCacheQuery := `
	CREATE TABLE IF NOT EXISTS travel_cache (
		mode TEXT NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		cost REAL NOT NULL,
		PRIMARY KEY (mode, origin, destination)
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_stops_city
	ON stops(city);
	`

	statements := []string{
		createStopsQuery,
		createPreferenceWeightsQuery,
		createItineraryHistoryQuery,
		createTravelCacheQuery,
		createGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type StopSeed struct {
	StopID       string             `json:"stop_id"`
	City         string             `json:"city"`
	Name         string             `json:"name"`
	Lat          float64            `json:"lat"`
	Lon          float64            `json:"lon"`
	Categories   []string           `json:"categories"`
	VisitMinutes int                `json:"visit_minutes"`
	Cost         float64            `json:"cost"`
	OpenMinutes  *int               `json:"open_minutes"`
	CloseMinutes *int               `json:"close_minutes"`
	Popularity   map[string]float64 `json:"popularity"`
}

// Populate the database with candidate stops from a JSON file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed stops: read %q: %w", jsonPath, err)
	}

	var data []StopSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed stops: parse json: %w", err)
	}

	rows := make([]StopSeed, 0, len(data))
	for i, item := range data {
		if strings.TrimSpace(item.StopID) == "" {
			return fmt.Errorf("seed stops: item at index %d: stop_id cannot be empty", i+1)
		}
		if strings.TrimSpace(item.City) == "" {
			return fmt.Errorf("seed stops: item at index %d: city cannot be empty", i+1)
		}
		if item.VisitMinutes <= 0 {
			return fmt.Errorf("seed stops: item at index %d: visit_minutes must be positive", i+1)
		}
		rows = append(rows, item)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed stops: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT OR REPLACE INTO stops (
		stop_id,
		city,
		name,
		lat,
		lon,
		categories,
		visit_minutes,
		cost,
		open_minutes,
		close_minutes,
		popularity
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed stops: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range rows {
		pop, err := json.Marshal(s.Popularity)
		if err != nil {
			return fmt.Errorf("seed stops: marshal popularity for %q: %w", s.StopID, err)
		}

		_, err = stmt.Exec(
			s.StopID,
			s.City,
			s.Name,
			s.Lat,
			s.Lon,
			strings.Join(s.Categories, ","),
			s.VisitMinutes,
			s.Cost,
			s.OpenMinutes,
			s.CloseMinutes,
			string(pop),
		)
		if err != nil {
			return fmt.Errorf("seed stops: insert stop_id=%q: %w", s.StopID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed stops: commit tx: %w", err)
	}

	return nil
}
