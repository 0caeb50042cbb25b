package classify

import (
	"context"

	"filesorter/internal/resolve"
)

// Method records how a Result was produced.
type Method string

const (
	MethodRemote         Method = "remote"
	MethodLocalRule      Method = "local-rule"
	MethodLocalExtension Method = "local-extension"
	MethodLocalDefault   Method = "local-default"
)

// DefaultCategory is used when nothing else matches.
const DefaultCategory = "Other"

// Request describes the file being classified.
type Request struct {
	Filename  string
	Extension string
	// SizeBytes is nil when the size could not be read.
	SizeBytes *int64
	// ContentPreview is only set for known text formats.
	ContentPreview *string
}

// Result is a classification verdict. Destination is a folder path relative to
// the directory that holds the source file.
type Result struct {
	Category         string
	Destination      string
	Confidence       float64
	RuleID           string
	RuleName         string
	Method           Method
	ConflictStrategy resolve.Strategy
}

// Provider classifies files.
type Provider interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Result, error)

// Classify calls f.
func (f ProviderFunc) Classify(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
