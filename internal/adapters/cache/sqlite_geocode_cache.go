package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tour-planner-service/internal/domain"
)

// SQLite backed cache mapping place queries to coordinates.
type SqliteGeocodeCache struct {
	DB *sql.DB
}

func NewSqliteGeocodeCache(db *sql.DB) *SqliteGeocodeCache {
	return &SqliteGeocodeCache{DB: db}
}

// Get returns the cached coordinates for a query, if present.
func (s *SqliteGeocodeCache) Get(ctx context.Context, query string) (domain.Coordinates, bool, error) {
	if s.DB == nil {
		return domain.Coordinates{}, false, errors.New("geocode cache: db is nil")
	}
	if query == "" {
		return domain.Coordinates{}, false, errors.New("get geocode cache: query must not be empty")
	}

	q := `
	SELECT lat, lon
	FROM geocode_cache
	WHERE query = ?;
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
func (s *SqliteGeocodeCache) Put(ctx context.Context, query string, c domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}
	if query == "" {
		return errors.New("insert geocode cache: query must not be empty")
	}

	q := `
	INSERT OR REPLACE INTO geocode_cache (query, lat, lon)
	VALUES (?, ?, ?);
	`

	if _, err := s.DB.ExecContext(ctx, q, query, c.Lat, c.Lon); err != nil {
		return fmt.Errorf("insert geocode cache query=%q: %w", query, err)
	}

	return nil
}
