package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tour-planner-service/internal/domain"
)

// SQLGeocodeCache is a SQL-backed cache mapping place queries to coordinates.
type SQLGeocodeCache struct {
	DB *sql.DB
}

func NewSQLGeocodeCache(db *sql.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Get returns the cached coordinates for a query, if present.
func (s *SQLGeocodeCache) Get(ctx context.Context, query string) (domain.Coordinates, bool, error) {
	if s.DB == nil {
		return domain.Coordinates{}, false, errors.New("geocode cache: db is nil")
	}
	if query == "" {
		return domain.Coordinates{}, false, errors.New("get geocode cache: query must not be empty")
	}

	q := `
	SELECT lat, lon
	FROM geocode_cache
	WHERE query = $1;
	`

	var c domain.Coordinates
	err := s.DB.QueryRowContext(ctx, q, query).Scan(&c.Lat, &c.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	return c, true, nil
}

// Put stores coordinates for a query, replacing any previous entry.
func (s *SQLGeocodeCache) Put(ctx context.Context, query string, c domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if query == "" {
		return errors.New("insert geocode cache: query must not be empty")
	}

	q := `
	INSERT INTO geocode_cache (query, lat, lon)
	VALUES ($1, $2, $3)
	ON CONFLICT (query) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`

	if _, err := s.DB.ExecContext(ctx, q, query, c.Lat, c.Lon); err != nil {
		return fmt.Errorf("insert geocode cache query=%q: %w", query, err)
	}

	return nil
}
