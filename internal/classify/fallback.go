package classify

import (
	"context"
	"errors"
	"log/slog"

	"filesorter/internal/logging"
)

// Fallback uses Primary and degrades to Secondary when Primary reports a
// ProviderError. Quota refusals and context cancellation are returned as is.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	Logger    *slog.Logger
}

// Classify implements Provider.
func (f *Fallback) Classify(ctx context.Context, req Request) (Result, error) {
	result, err := f.Primary.Classify(ctx, req)
	if err == nil {
		return result, nil
	}
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || ctx.Err() != nil {
		return Result{}, err
	}
	logging.WarnWithContext(f.Logger, "classification service unavailable; using local rules", "classify_fallback",
		logging.String("filename", req.Filename),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check service.url and network connectivity"),
		logging.String(logging.FieldImpact, "file sorted with offline rules"),
	)
	return f.Secondary.Classify(ctx, req)
}
