package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"filesorter/internal/audit"
)

// EnqueuePending parks record for a later delivery attempt. Enqueuing the same
// record again only refreshes its last error.
func (s *Store) EnqueuePending(ctx context.Context, record audit.Record, cause error) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode pending action: %w", err)
	}
	lastErr := ""
	if cause != nil {
		lastErr = cause.Error()
	}
	now := toMillis(time.Now())
	_, err = s.exec(ctx, `INSERT INTO pending_actions (record_id, payload, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET last_error = excluded.last_error, updated_at = excluded.updated_at`,
		record.ID, string(payload), lastErr, now, now)
	if err != nil {
		return fmt.Errorf("insert pending action: %w", err)
	}
	return nil
}

// PendingActions returns up to limit queued records, oldest first.
func (s *Store) PendingActions(ctx context.Context, limit int) ([]audit.Pending, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload, attempts, last_error, created_at, updated_at
		FROM pending_actions ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending actions: %w", err)
	}
	defer rows.Close()

	var out []audit.Pending
	for rows.Next() {
		var (
			item             audit.Pending
			payload          string
			created, updated int64
		)
		if err := rows.Scan(&item.ID, &payload, &item.Attempts, &item.LastError, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &item.Record); err != nil {
			return nil, fmt.Errorf("decode pending action %d: %w", item.ID, err)
		}
		item.CreatedAt = fromMillis(created)
		item.UpdatedAt = fromMillis(updated)
		out = append(out, item)
	}
	return out, rows.Err()
}

// CountPending returns the queue length.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pending_actions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending actions: %w", err)
	}
	return count, nil
}

// DeletePending removes a delivered record.
func (s *Store) DeletePending(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, "DELETE FROM pending_actions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete pending action: %w", err)
	}
	return nil
}

// MarkPendingAttempt records a failed delivery attempt.
func (s *Store) MarkPendingAttempt(ctx context.Context, id int64, cause error) error {
	lastErr := ""
	if cause != nil {
		lastErr = cause.Error()
	}
	if _, err := s.exec(ctx, "UPDATE pending_actions SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?",
		lastErr, toMillis(time.Now()), id); err != nil {
		return fmt.Errorf("update pending action: %w", err)
	}
	return nil
}
