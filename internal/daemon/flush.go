package daemon

import (
	"context"

	"filesorter/internal/audit"
	"filesorter/internal/logging"
)

// FlushPending delivers queued audit records to the service.
func (d *Daemon) FlushPending(ctx context.Context) (audit.FlushResult, error) {
	result, err := audit.Flush(ctx, d.store, d.remote, d.cfg.Audit.FlushBatchSize, d.logger)
	if err != nil {
		d.logger.Warn("pending action flush failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "audit_flush_failed"),
			logging.String(logging.FieldErrorHint, "check the state database"),
			logging.String(logging.FieldImpact, "history upload is delayed"),
		)
		return result, err
	}
	if result.Delivered > 0 || result.Failed > 0 || result.Rejected > 0 {
		d.logger.Info("pending actions flushed",
			logging.String(logging.FieldEventType, "audit_flush_completed"),
			logging.Int("delivered", result.Delivered),
			logging.Int("failed", result.Failed),
			logging.Int("rejected", result.Rejected),
		)
	}
	return result, nil
}
