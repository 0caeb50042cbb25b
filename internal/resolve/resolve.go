// Package resolve decides what happens when a file's destination is already taken.
package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Strategy names a conflict policy.
type Strategy string

const (
	StrategySkip      Strategy = "skip"
	StrategyOverwrite Strategy = "overwrite"
	StrategyRename    Strategy = "rename"
)

// ParseStrategy maps a wire value to a Strategy. Empty and unknown values map
// to StrategySkip.
func ParseStrategy(value string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyOverwrite:
		return StrategyOverwrite
	case StrategyRename:
		return StrategyRename
	default:
		return StrategySkip
	}
}

// Outcome is the resolver verdict. When Skip is true Path is empty and the
// source file must be left where it is.
type Outcome struct {
	Path string
	Skip bool
}

// Proceed returns an outcome that moves the file to path.
func Proceed(path string) Outcome { return Outcome{Path: path} }

// Skipped returns an outcome that leaves the file in place.
func Skipped() Outcome { return Outcome{Skip: true} }

// Resolve applies strategy to dest. A free destination always proceeds
// unchanged. Overwrite deletes the existing file before returning. Rename picks
// the first free "name (n).ext" candidate counting from 1.
func Resolve(dest string, strategy Strategy) (Outcome, error) {
	return resolveDest(dest, strategy, true)
}

// Preview reports what Resolve would decide without removing anything.
func Preview(dest string, strategy Strategy) (Outcome, error) {
	return resolveDest(dest, strategy, false)
}

func resolveDest(dest string, strategy Strategy, apply bool) (Outcome, error) {
	info, err := os.Lstat(dest)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Proceed(dest), nil
		}
		return Outcome{}, fmt.Errorf("stat destination %q: %w", dest, err)
	}

	switch strategy {
	case StrategyOverwrite:
		if info.IsDir() {
			return Outcome{}, fmt.Errorf("destination %q is a directory", dest)
		}
		if !apply {
			return Proceed(dest), nil
		}
		if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Outcome{}, fmt.Errorf("remove existing destination %q: %w", dest, err)
		}
		return Proceed(dest), nil
	case StrategyRename:
		candidate, err := nextFreePath(dest)
		if err != nil {
			return Outcome{}, err
		}
		return Proceed(candidate), nil
	default:
		return Skipped(), nil
	}
}

func nextFreePath(dest string) (string, error) {
	dir := filepath.Dir(dest)
	stem, ext := splitName(filepath.Base(dest))
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if _, err := os.Lstat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", fmt.Errorf("stat candidate %q: %w", candidate, err)
		}
	}
}

// splitName separates the final extension. Dotfiles such as ".env" keep the
// whole name as the stem.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}
