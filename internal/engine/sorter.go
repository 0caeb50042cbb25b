package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"filesorter/internal/audit"
	"filesorter/internal/classify"
	"filesorter/internal/logging"
	"filesorter/internal/mover"
	"filesorter/internal/notifications"
	"filesorter/internal/resolve"
	"filesorter/internal/services"
)

// Pipeline stage names used in logs and StageError.
const (
	StageSettle   = "settle"
	StageClassify = "classify"
	StageResolve  = "resolve"
	StageMove     = "move"
	StageAudit    = "audit"
)

// Action describes what happened to a file.
type Action string

const (
	ActionMoved     Action = "moved"
	ActionSkipped   Action = "skipped"
	ActionPlanned   Action = "planned"
	ActionPaused    Action = "paused"
	ActionDuplicate Action = "duplicate"
	ActionIgnored   Action = "ignored"
)

// Outcome reports the handling of one file.
type Outcome struct {
	Action      Action
	Source      string
	Destination string
	Result      classify.Result
	Record      *audit.Record
}

// StageError attributes a per-file failure to the pipeline stage that raised it.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Mover performs the file move. *mover.Executor satisfies it.
type Mover interface {
	Execute(source, dest string, meta mover.Meta) (audit.Record, error)
}

// Sorter runs classify, resolve, move and audit for a single file. Audit,
// Notifier and Counter are optional.
type Sorter struct {
	Classifier   classify.Provider
	Mover        Mover
	Audit        audit.Logger
	Notifier     notifications.Service
	Counter      *DailyCounter
	DashboardURL string
	Logger       *slog.Logger
}

// Sort moves the file at path to its classified destination. A conflict
// resolved as skip returns ActionSkipped and leaves the file untouched.
func (s *Sorter) Sort(ctx context.Context, path string) (Outcome, error) {
	outcome, err := s.plan(ctx, path, resolve.Resolve)
	if err != nil || outcome.Action == ActionSkipped {
		return outcome, err
	}

	result := outcome.Result
	record, err := s.Mover.Execute(path, outcome.Destination, mover.Meta{
		Category:   result.Category,
		RuleID:     result.RuleID,
		Confidence: result.Confidence,
		Method:     string(result.Method),
	})
	if err != nil {
		return Outcome{}, &StageError{Stage: StageMove, Path: path, Err: err}
	}
	outcome.Action = ActionMoved
	outcome.Record = &record

	logger := s.logger(ctx, path)
	if s.Audit != nil {
		if err := s.Audit.LogAction(ctx, record); err != nil {
			var logErr *audit.LogError
			queued := errors.As(err, &logErr) && logErr.Queued
			logging.WarnWithContext(logger, "action not fully recorded", "audit_log_failed",
				logging.String(logging.FieldStage, StageAudit),
				logging.String("record_id", record.ID),
				logging.Bool("queued", queued),
				logging.Error(err),
				logging.String(logging.FieldImpact, "history may lag until the service is reachable"),
			)
		}
	}
	today := s.Counter.Increment()

	logger.Info("file sorted",
		logging.String(logging.FieldEventType, "file_sorted"),
		logging.String("destination", record.DestPath),
		logging.String("category", record.Category),
		logging.String("method", record.Method),
		logging.Float64("confidence", record.Confidence),
		logging.Int("today", today),
	)
	if s.Notifier != nil {
		if err := s.Notifier.NotifyFileSorted(ctx, record.Filename, record.Category); err != nil {
			logger.Debug("sorted notification failed", logging.Error(err))
		}
	}
	return outcome, nil
}

// Plan classifies path and reports where Sort would put it without touching
// the filesystem.
func (s *Sorter) Plan(ctx context.Context, path string) (Outcome, error) {
	outcome, err := s.plan(ctx, path, resolve.Preview)
	if err != nil || outcome.Action == ActionSkipped {
		return outcome, err
	}
	outcome.Action = ActionPlanned
	return outcome, nil
}

func (s *Sorter) plan(ctx context.Context, path string, decide func(string, resolve.Strategy) (resolve.Outcome, error)) (Outcome, error) {
	req, err := classify.BuildRequest(path)
	if err != nil {
		return Outcome{}, &StageError{Stage: StageClassify, Path: path, Err: services.Wrap(services.ErrTransient, StageClassify, "read file", "", err)}
	}
	result, err := s.Classifier.Classify(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrQuota) && s.Notifier != nil {
			if notifyErr := s.Notifier.NotifyQuotaExceeded(ctx, s.DashboardURL); notifyErr != nil {
				s.logger(ctx, path).Debug("quota notification failed", logging.Error(notifyErr))
			}
		}
		return Outcome{}, &StageError{Stage: StageClassify, Path: path, Err: err}
	}

	outcome := Outcome{Source: path, Result: result}
	dest := filepath.Join(filepath.Dir(path), result.Destination, filepath.Base(path))
	if dest == path {
		outcome.Action = ActionSkipped
		return outcome, nil
	}

	decision, err := decide(dest, result.ConflictStrategy)
	if err != nil {
		return Outcome{}, &StageError{Stage: StageResolve, Path: path, Err: services.Wrap(services.ErrResolve, StageResolve, "resolve destination", dest, err)}
	}
	if decision.Skip {
		outcome.Action = ActionSkipped
		outcome.Destination = dest
		return outcome, nil
	}
	outcome.Destination = decision.Path
	return outcome, nil
}

func (s *Sorter) logger(ctx context.Context, path string) *slog.Logger {
	base := s.Logger
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(services.WithPath(ctx, path), base)
}
