package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"filesorter/internal/resolve"
	"filesorter/internal/services"
	"filesorter/internal/services/backend"
)

// Backend is the subset of the service client used by Remote.
type Backend interface {
	Classify(ctx context.Context, req backend.ClassifyRequest) (backend.ClassifyResponse, error)
}

// Remote classifies files through the classification service.
type Remote struct {
	client Backend
}

// NewRemote wraps a service client.
func NewRemote(client Backend) *Remote {
	return &Remote{client: client}
}

// Classify implements Provider. A plan limit refusal returns ErrQuotaExceeded;
// every other failure, including an unusable verdict, is a *ProviderError.
func (r *Remote) Classify(ctx context.Context, req Request) (Result, error) {
	if r == nil || r.client == nil {
		return Result{}, &ProviderError{Provider: "remote", Filename: req.Filename, Err: services.ErrConfiguration}
	}
	resp, err := r.client.Classify(ctx, backend.ClassifyRequest{
		Filename:       req.Filename,
		Extension:      req.Extension,
		SizeBytes:      req.SizeBytes,
		ContentPreview: req.ContentPreview,
	})
	if err != nil {
		if errors.Is(err, services.ErrQuota) {
			return Result{}, fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
		return Result{}, &ProviderError{Provider: "remote", Filename: req.Filename, Err: err}
	}

	destination, err := validateDestination(resp.Destination)
	if err != nil {
		return Result{}, &ProviderError{Provider: "remote", Filename: req.Filename, Err: err}
	}

	result := Result{
		Category:    strings.TrimSpace(resp.Category),
		Destination: destination,
		Confidence:  clampConfidence(resp.Confidence),
		Method:      MethodRemote,
	}
	if result.Category == "" {
		result.Category = destination
	}
	if resp.RuleID != nil {
		result.RuleID = *resp.RuleID
	}
	if resp.RuleName != nil {
		result.RuleName = *resp.RuleName
	}
	if resp.ConflictStrategy != nil {
		result.ConflictStrategy = resolve.ParseStrategy(*resp.ConflictStrategy)
	} else {
		result.ConflictStrategy = resolve.StrategySkip
	}
	return result, nil
}

// validateDestination keeps the target inside the watched folder.
func validateDestination(dest string) (string, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", errors.New("empty destination")
	}
	if filepath.IsAbs(dest) || strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, `\`) {
		return "", fmt.Errorf("absolute destination %q", dest)
	}
	cleaned := filepath.Clean(filepath.FromSlash(dest))
	if cleaned == "." {
		return "", fmt.Errorf("destination %q resolves to the source folder", dest)
	}
	for _, part := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if part == ".." {
			return "", fmt.Errorf("destination %q escapes the watched folder", dest)
		}
	}
	return cleaned, nil
}

func clampConfidence(value float64) float64 {
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
