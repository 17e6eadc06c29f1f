package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-planner-service/internal/domain"
	"tour-planner-service/internal/ports"
)

// SQLite-backed implementation of the CandidateProvider port, serving
// seeded candidate stops for local runs without external place APIs.
type SqliteStopRepository struct{ DB *sql.DB }

func NewSqliteStopRepository(db *sql.DB) *SqliteStopRepository {
	return &SqliteStopRepository{DB: db}
}

// ListCandidates returns the stored stops for a city, anchoring daily
// opening hours to the query's planning day.
func (s *SqliteStopRepository) ListCandidates(ctx context.Context, q ports.CandidateQuery) (ports.CandidateResult, error) {
	if s.DB == nil {
		return ports.CandidateResult{}, errors.New("sqlite stop repository: DB is nil")
	}
	if q.City == "" {
		return ports.CandidateResult{}, fmt.Errorf("list candidates: %w: city must be non-empty", domain.ErrCandidateLookupFailed)
	}

	query := `
	SELECT
		stop_id,
		name,
		lat,
		lon,
		categories,
		visit_minutes,
		cost,
		open_minutes,
		close_minutes,
		popularity
	FROM stops
	WHERE city = ?
	ORDER BY stop_id;
	`
	rows, err := s.DB.QueryContext(ctx, query, q.City)
	if err != nil {
		return ports.CandidateResult{}, fmt.Errorf("list candidates: query stops table: %w: %v", domain.ErrCandidateLookupFailed, err)
	}
	defer rows.Close()

	midnight := time.Date(q.Day.Year(), q.Day.Month(), q.Day.Day(), 0, 0, 0, 0, q.Day.Location())

	stops := make([]*domain.Stop, 0, 32)
	truncated := false
	for rows.Next() {
		var (
			stop       domain.Stop
			categories string
			visitMin   int
			openMin    sql.NullInt64
			closeMin   sql.NullInt64
			popularity string
		)
		err := rows.Scan(
			&stop.ID,
			&stop.Name,
			&stop.Location.Lat,
			&stop.Location.Lon,
			&categories,
			&visitMin,
			&stop.Cost,
			&openMin,
			&closeMin,
			&popularity,
		)
		if err != nil {
			return ports.CandidateResult{}, fmt.Errorf("list candidates: scan row: %w", err)
		}

		stop.Categories = strings.Split(categories, ",")
		stop.VisitDuration = time.Duration(visitMin) * time.Minute
		if openMin.Valid && closeMin.Valid {
			stop.Window = &domain.TimeWindow{
				Open:  midnight.Add(time.Duration(openMin.Int64) * time.Minute),
				Close: midnight.Add(time.Duration(closeMin.Int64) * time.Minute),
			}
		}
		if err := json.Unmarshal([]byte(popularity), &stop.Popularity); err != nil {
			return ports.CandidateResult{}, fmt.Errorf("list candidates: parse popularity for %q: %w", stop.ID, err)
		}

		if q.Limit > 0 && len(stops) >= q.Limit {
			truncated = true
			break
		}
		stops = append(stops, &stop)
	}

	if err := rows.Err(); err != nil {
		return ports.CandidateResult{}, fmt.Errorf("list candidates: row iteration: %w", err)
	}

	return ports.CandidateResult{Stops: stops, Truncated: truncated}, nil
}
