package repositories

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

// SQLPreferenceStore is the Postgres implementation of the PreferenceStore
// port, for deployments where preference memory must outlive a single host.
type SQLPreferenceStore struct{ DB *sql.DB }

func NewSQLPreferenceStore(db *sql.DB) *SQLPreferenceStore {
	return &SQLPreferenceStore{DB: db}
}

func (s *SQLPreferenceStore) Record(ctx context.Context, userID, city string, it *domain.Itinerary) (err error) {
	defer obs.Time(ctx, "prefs.Record")(&err)

	if s.DB == nil {
		return errors.New("sql preference store: DB is nil")
	}
	if userID == "" {
		return errors.New("record preferences: user id must be non-empty")
	}
	if it == nil || len(it.Stops) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record preferences: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO itinerary_history (user_id, digest, city, stop_ids, total_cost, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, digest) DO NOTHING;
	`, userID, it.Digest(), city, strings.Join(it.StopIDs(), ","), it.TotalCost, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record preferences: insert history: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record preferences: rows affected: %w", err)
	}
	if inserted == 0 {
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO preference_weights (user_id, city, category, visits, weight)
	VALUES ($1, $2, $3, 1, 0.2)
	ON CONFLICT (user_id, city, category) DO UPDATE
	SET visits = preference_weights.visits + 1,
		weight = preference_weights.weight + (1.0 - preference_weights.weight) * 0.2;
	`)
	if err != nil {
		return fmt.Errorf("record preferences: prepare weights upsert: %w", err)
	}
	defer stmt.Close()

	for _, cat := range visitedCategories(it) {
		if _, err := stmt.ExecContext(ctx, userID, city, cat); err != nil {
			return fmt.Errorf("record preferences: upsert category %q: %w", cat, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record preferences: commit tx: %w", err)
	}

	return nil
}

func (s *SQLPreferenceStore) WeightsFor(ctx context.Context, userID, city string) (_ map[string]float64, err error) {
	defer obs.Time(ctx, "prefs.WeightsFor")(&err)

	if s.DB == nil {
		return nil, errors.New("sql preference store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT category, weight
	FROM preference_weights
	WHERE user_id = $1 AND city = $2;
	`, userID, city)
	if err != nil {
		return nil, fmt.Errorf("weights for %q/%q: query: %w", userID, city, err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var cat string
		var w float64
		if err := rows.Scan(&cat, &w); err != nil {
			return nil, fmt.Errorf("weights for %q/%q: scan row: %w", userID, city, err)
		}
		out[cat] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("weights for %q/%q: row iteration: %w", userID, city, err)
	}

	return out, nil
}
