package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CachedRule is a service rule kept for offline classification.
// ConditionValue holds the raw JSON condition object.
type CachedRule struct {
	ID             string
	Name           string
	ConditionType  string
	ConditionValue []byte
	Destination    string
	Priority       int
	SyncedAt       time.Time
}

// ReplaceRules swaps the cached rule set in one transaction and records the
// sync time, so an empty rule set is remembered as synced.
func (s *Store) ReplaceRules(ctx context.Context, rules []CachedRule) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin rules tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM cached_rules"); err != nil {
			return fmt.Errorf("clear cached rules: %w", err)
		}
		now := toMillis(time.Now())
		for i, rule := range rules {
			value := string(rule.ConditionValue)
			if value == "" {
				value = "{}"
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO cached_rules
				(id, name, condition_type, condition_value, destination, priority, position, synced_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rule.ID, rule.Name, rule.ConditionType, value, rule.Destination, rule.Priority, i, now); err != nil {
				return fmt.Errorf("insert cached rule %s: %w", rule.ID, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO rules_sync (id, synced_at) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET synced_at = excluded.synced_at`, now); err != nil {
			return fmt.Errorf("record rules sync: %w", err)
		}
		return tx.Commit()
	})
}

// RulesSyncedAt reports when the rule cache was last replaced. ok is false
// when rules have never been synced.
func (s *Store) RulesSyncedAt(ctx context.Context) (time.Time, bool, error) {
	var synced int64
	err := s.db.QueryRowContext(ctx, "SELECT synced_at FROM rules_sync WHERE id = 1").Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query rules sync: %w", err)
	}
	return fromMillis(synced), true, nil
}

// Rules returns the cached rules in the order they were synced.
func (s *Store) Rules(ctx context.Context) ([]CachedRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, condition_type, condition_value, destination, priority, synced_at
		FROM cached_rules ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query cached rules: %w", err)
	}
	defer rows.Close()

	var out []CachedRule
	for rows.Next() {
		var (
			rule   CachedRule
			value  string
			synced int64
		)
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.ConditionType, &value, &rule.Destination, &rule.Priority, &synced); err != nil {
			return nil, fmt.Errorf("scan cached rule: %w", err)
		}
		rule.ConditionValue = []byte(value)
		rule.SyncedAt = fromMillis(synced)
		out = append(out, rule)
	}
	return out, rows.Err()
}
