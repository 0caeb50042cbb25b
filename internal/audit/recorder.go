package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"filesorter/internal/logging"
	"filesorter/internal/services/backend"
)

// Pending is a record waiting to be delivered to the service.
type Pending struct {
	ID        int64
	Record    Record
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// History is the local action store.
type History interface {
	RecordAction(ctx context.Context, record Record) error
	EnqueuePending(ctx context.Context, record Record, cause error) error
}

// Queue is the pending side of the local store used by Flush.
type Queue interface {
	PendingActions(ctx context.Context, limit int) ([]Pending, error)
	DeletePending(ctx context.Context, id int64) error
	MarkPendingAttempt(ctx context.Context, id int64, cause error) error
}

// Remote delivers records to the classification service.
type Remote interface {
	LogAction(ctx context.Context, req backend.ActionLogRequest) error
}

// Recorder writes records to local history and then to the service.
// Remote may be nil when the agent runs offline.
type Recorder struct {
	History History
	Remote  Remote
	Logger  *slog.Logger
}

// NewRecorder constructs a recorder. remote may be nil.
func NewRecorder(history History, remote Remote, logger *slog.Logger) *Recorder {
	return &Recorder{History: history, Remote: remote, Logger: logging.NewComponentLogger(logger, "audit")}
}

// LogAction implements Logger. The record is always kept locally when the
// store is writable; a remote failure parks it in the pending queue and
// returns a *LogError.
func (r *Recorder) LogAction(ctx context.Context, record Record) error {
	if r.History != nil {
		if err := r.History.RecordAction(ctx, record); err != nil {
			return &LogError{RecordID: record.ID, Err: fmt.Errorf("local history: %w", err)}
		}
	}
	if r.Remote == nil {
		return nil
	}

	remoteErr := r.Remote.LogAction(ctx, ToWire(record))
	if remoteErr == nil {
		return nil
	}
	if r.History == nil || backend.IsRejected(remoteErr) {
		return &LogError{RecordID: record.ID, Err: remoteErr}
	}
	if err := r.History.EnqueuePending(ctx, record, remoteErr); err != nil {
		return &LogError{RecordID: record.ID, Err: errors.Join(remoteErr, fmt.Errorf("enqueue pending: %w", err))}
	}
	return &LogError{RecordID: record.ID, Queued: true, Err: remoteErr}
}

// ToWire converts a record to the service action log body. Records carry a
// category label, not a service category id, so category_id is always null.
func ToWire(record Record) backend.ActionLogRequest {
	req := backend.ActionLogRequest{
		Filename:   record.Filename,
		SourcePath: record.SourcePath,
		DestPath:   record.DestPath,
		Confidence: record.Confidence,
	}
	if record.RuleID != "" {
		ruleID := record.RuleID
		req.RuleID = &ruleID
	}
	return req
}

// FlushResult summarizes one Flush pass.
type FlushResult struct {
	Delivered int
	Failed    int
	// Rejected counts records the service refused outright; they are dropped
	// from the queue.
	Rejected int
}

// Flush delivers up to batch queued records, oldest first. It stops at the
// first retryable failure so an unreachable service is not hammered with
// every record. Records the service rejects are removed and the pass goes on.
func Flush(ctx context.Context, queue Queue, remote Remote, batch int, logger *slog.Logger) (FlushResult, error) {
	var result FlushResult
	if queue == nil || remote == nil {
		return result, nil
	}
	pending, err := queue.PendingActions(ctx, batch)
	if err != nil {
		return result, fmt.Errorf("load pending actions: %w", err)
	}
	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		sendErr := remote.LogAction(ctx, ToWire(item.Record))
		if sendErr != nil && backend.IsRejected(sendErr) {
			if err := queue.DeletePending(ctx, item.ID); err != nil {
				return result, fmt.Errorf("delete rejected action: %w", err)
			}
			result.Rejected++
			if logger != nil {
				logging.WarnWithContext(logger, "pending action rejected by service", "audit_record_rejected",
					logging.String("record_id", item.Record.ID),
					logging.Error(sendErr),
					logging.String(logging.FieldImpact, "the move stays in local history but not on the dashboard"),
				)
			}
			continue
		}
		if sendErr != nil {
			result.Failed++
			if err := queue.MarkPendingAttempt(ctx, item.ID, sendErr); err != nil {
				return result, fmt.Errorf("mark pending attempt: %w", err)
			}
			if logger != nil {
				logger.Debug("pending action delivery failed",
					logging.String("record_id", item.Record.ID),
					logging.Int("attempts", item.Attempts+1),
					logging.Error(sendErr),
				)
			}
			return result, nil
		}
		if err := queue.DeletePending(ctx, item.ID); err != nil {
			return result, fmt.Errorf("delete delivered action: %w", err)
		}
		result.Delivered++
	}
	return result, nil
}
