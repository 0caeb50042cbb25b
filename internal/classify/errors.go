package classify

import (
	"fmt"

	"filesorter/internal/services"
)

// ErrQuotaExceeded reports that the service refused the request because the
// plan limit was reached. It is not retried.
var ErrQuotaExceeded = fmt.Errorf("%w: plan limit reached", services.ErrQuota)

// ProviderError reports that a provider could not produce a usable verdict.
type ProviderError struct {
	Provider string
	Filename string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s classifier failed for %q: %v", e.Provider, e.Filename, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{services.ErrProvider, e.Err}
}
