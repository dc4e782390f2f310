package registry

import (
	"context"
	"fmt"
	"time"
)

// MetricTotals returns the persisted routing counters keyed by series.
func (s *Store) MetricTotals(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT series, value FROM metric_totals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			series string
			value  int64
		)
		if err := rows.Scan(&series, &value); err != nil {
			return nil, err
		}
		out[series] = value
	}
	return out, rows.Err()
}

// AddMetricTotals adds delta to the persisted counters in one transaction.
// Concurrent processes each add their own increments.
func (s *Store) AddMetricTotals(ctx context.Context, delta map[string]int64) error {
	if len(delta) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metric update: %w", err)
	}
	now := time.Now()
	for series, v := range delta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metric_totals (series, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(series) DO UPDATE SET
			   value      = value + excluded.value,
			   updated_at = excluded.updated_at`,
			series, v, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("update metric %s: %w", series, err)
		}
	}
	return tx.Commit()
}
