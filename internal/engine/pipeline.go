package engine

import (
	"context"
	"errors"

	"filesorter/internal/logging"
	"filesorter/internal/services"
	"filesorter/internal/tracker"
)

// handle runs one arrival through the pipeline. It never returns an error;
// failures are logged and leave the path unmarked so a later event retries it.
func (e *Engine) handle(ctx context.Context, path string) Outcome {
	logger := logging.WithContext(services.WithPath(ctx, path), e.logger)

	if e.paused.Paused() {
		logger.Debug("paused; event dropped", logging.String(logging.FieldEventType, "event_dropped_paused"))
		return Outcome{Action: ActionPaused, Source: path}
	}
	if !e.tracker.ShouldProcess(path) {
		logger.Debug("already processed", logging.String(logging.FieldEventType, "event_duplicate"))
		return Outcome{Action: ActionDuplicate, Source: path}
	}

	verdict, err := e.tracker.Settle(ctx, path)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("settle check failed",
				logging.String(logging.FieldStage, StageSettle),
				logging.Error(err),
			)
		}
		return Outcome{Action: ActionIgnored, Source: path}
	}
	if verdict != tracker.Ready {
		logger.Debug("file not ready", logging.String("verdict", verdict.String()))
		return Outcome{Action: ActionIgnored, Source: path}
	}

	// The move must finish once started even if the engine is stopping.
	workCtx := context.WithoutCancel(ctx)
	outcome, err := e.sorter.Sort(workCtx, path)
	if err != nil {
		e.setLastError(err)
		stage := ""
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		attrs := []logging.Attr{
			logging.String(logging.FieldStage, stage),
			logging.Error(err),
			logging.Bool("retryable", services.Retryable(err)),
		}
		switch {
		case errors.Is(err, services.ErrQuota):
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "upgrade the plan or switch classifier.mode to local"))
		case errors.Is(err, services.ErrMove):
			attrs = append(attrs, logging.String(logging.FieldErrorHint, "check permissions and free space at the destination"))
		}
		logging.ErrorWithContext(logger, "file not sorted", "file_failed", attrs...)
		return Outcome{Action: ActionIgnored, Source: path}
	}

	e.tracker.MarkProcessed(path)
	if outcome.Action == ActionSkipped {
		logger.Info("destination occupied; file left in place",
			logging.String(logging.FieldEventType, "file_skipped"),
			logging.String("destination", outcome.Destination),
		)
		return outcome
	}
	e.setLastFile(path)
	return outcome
}
