package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-planner-service/internal/domain"
)

// SQLite-backed implementation of the PreferenceStore port. Recording is
// keyed by the itinerary digest: the history insert acts as the idempotency
// guard, so the same accepted plan can be recorded twice without
// double-counting weights.
type SqlitePreferenceStore struct{ DB *sql.DB }

func NewSqlitePreferenceStore(db *sql.DB) *SqlitePreferenceStore {
	return &SqlitePreferenceStore{DB: db}
}

func (s *SqlitePreferenceStore) Record(ctx context.Context, userID, city string, it *domain.Itinerary) error {
	if s.DB == nil {
		return errors.New("sqlite preference store: DB is nil")
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
	INSERT OR IGNORE INTO itinerary_history (user_id, digest, city, stop_ids, total_cost, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`, userID, it.Digest(), city, strings.Join(it.StopIDs(), ","), it.TotalCost, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record preferences: insert history: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record preferences: rows affected: %w", err)
	}
	if inserted == 0 {
		// Same plan already recorded; weights stay untouched.
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO preference_weights (user_id, city, category, visits, weight)
	VALUES (?, ?, ?, 1, 0.2)
	ON CONFLICT (user_id, city, category) DO UPDATE
	SET visits = visits + 1,
		weight = weight + (1.0 - weight) * 0.2;
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

func (s *SqlitePreferenceStore) WeightsFor(ctx context.Context, userID, city string) (map[string]float64, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite preference store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT category, weight
	FROM preference_weights
	WHERE user_id = ? AND city = ?;
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

// visitedCategories returns the distinct categories in visit order.
func visitedCategories(it *domain.Itinerary) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(it.Stops))
	for _, s := range it.Stops {
		for _, c := range s.Stop.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
