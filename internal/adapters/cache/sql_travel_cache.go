package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/platform/obs"
)

// SQLTravelCache is a SQL-backed cache for mode-qualified travel legs.
type SQLTravelCache struct {
	DB *sql.DB
}

func NewSQLTravelCache(db *sql.DB) *SQLTravelCache {
	return &SQLTravelCache{DB: db}
}

// Fetch cached legs for one origin and multiple destinations.
func (s *SQLTravelCache) GetMany(
	ctx context.Context,
	mode domain.TransportMode,
	origin string,
	destinations []string,
) (_ map[string]domain.TravelLeg, err error) {
	defer obs.Time(ctx, "travel.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("travel cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel cache: origin must not be empty")
	}

	if len(destinations) == 0 {
		return map[string]domain.TravelLeg{}, nil
	}

	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(destinations))
	for _, d := range destinations {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}

		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		uniq = append(uniq, d)
	}

	if len(uniq) == 0 {
		return map[string]domain.TravelLeg{}, nil
	}

	q := `
	SELECT destination, duration_seconds, cost
    FROM travel_cache
    WHERE mode = $1
        AND origin = $2
        AND destination = ANY($3::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, string(mode), origin, uniq)
	if err != nil {
		return nil, fmt.Errorf("get travel cache: query travel_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.TravelLeg, len(uniq))
	for rows.Next() {
		var dest string
		var seconds int
		var cost float64
		if err := rows.Scan(&dest, &seconds, &cost); err != nil {
			return nil, fmt.Errorf("get travel cache: scan rows: %w", err)
		}
		out[dest] = domain.TravelLeg{
			Mode:     mode,
			Duration: time.Duration(seconds) * time.Second,
			Cost:     cost,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get travel cache: row iteration: %w", err)
	}

	return out, nil
}

// Store many cached travel legs for a single origin.
func (s *SQLTravelCache) PutMany(
	ctx context.Context,
	mode domain.TransportMode,
	origin string,
	legs map[string]domain.TravelLeg,
) error {
	if s.DB == nil {
		return errors.New("travel cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert travel cache: origin must not be empty")
	}

	if len(legs) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert travel cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO travel_cache (mode, origin, destination, duration_seconds, cost)
    VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (mode, origin, destination) DO UPDATE
	SET duration_seconds = EXCLUDED.duration_seconds,
		cost = EXCLUDED.cost;
	`)
	if err != nil {
		return fmt.Errorf("insert travel cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for dest, leg := range legs {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert travel cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, string(mode), origin, dest, int(leg.Duration.Seconds()), leg.Cost); err != nil {
			return fmt.Errorf("insert travel cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert travel cache commit: %w", err)
	}

	return nil
}
