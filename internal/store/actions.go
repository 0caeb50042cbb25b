package store

import (
	"context"
	"fmt"
	"time"

	"filesorter/internal/audit"
)

// RecordAction appends a completed move to the history. Recording the same
// record ID twice is a no-op.
func (s *Store) RecordAction(ctx context.Context, record audit.Record) error {
	_, err := s.exec(ctx, `INSERT INTO actions
		(id, filename, source_path, dest_path, category, rule_id, confidence, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		record.ID, record.Filename, record.SourcePath, record.DestPath,
		record.Category, record.RuleID, record.Confidence, record.Method,
		toMillis(record.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// RecentActions returns up to limit actions, newest first.
func (s *Store) RecentActions(ctx context.Context, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, source_path, dest_path, category, rule_id, confidence, method, created_at
		FROM actions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var (
			record  audit.Record
			created int64
		)
		if err := rows.Scan(&record.ID, &record.Filename, &record.SourcePath, &record.DestPath,
			&record.Category, &record.RuleID, &record.Confidence, &record.Method, &created); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		record.Timestamp = fromMillis(created)
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountSince returns how many actions were recorded at or after since.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM actions WHERE created_at >= ?", toMillis(since)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return count, nil
}
