// Package audit records completed moves.
//
// Every move produces exactly one Record. The Recorder writes it to the local
// history store first and then reports it to the classification service. When
// the service cannot be reached the record is parked in the pending queue for a
// later flush and LogError is returned; the move itself is never undone.
package audit

import (
	"context"
	"fmt"
	"time"

	"filesorter/internal/services"
)

// Record describes one completed move. Records are append-only.
type Record struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SourcePath string    `json:"source_path"`
	DestPath   string    `json:"dest_path"`
	Category   string    `json:"category"`
	RuleID     string    `json:"rule_id,omitempty"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
	Timestamp  time.Time `json:"timestamp"`
}

// Logger persists action records.
type Logger interface {
	LogAction(ctx context.Context, record Record) error
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(ctx context.Context, record Record) error

// LogAction calls f.
func (f LoggerFunc) LogAction(ctx context.Context, record Record) error {
	return f(ctx, record)
}

// LogError reports that a record could not be fully delivered. Queued is true
// when the record was parked for a later retry.
type LogError struct {
	RecordID string
	Queued   bool
	Err      error
}

func (e *LogError) Error() string {
	if e.Queued {
		return fmt.Sprintf("log action %s: queued for retry: %v", e.RecordID, e.Err)
	}
	return fmt.Sprintf("log action %s: %v", e.RecordID, e.Err)
}

func (e *LogError) Unwrap() []error {
	return []error{services.ErrAudit, e.Err}
}
