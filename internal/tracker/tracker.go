// Package tracker remembers which files were already handled and waits for a
// newly announced file to settle before it is touched.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultSettleDelay is how long a file must sit after its last event.
const DefaultSettleDelay = 3 * time.Second

// Verdict is the outcome of Settle.
type Verdict int

const (
	// Ready means the path is a visible regular file that can be processed.
	Ready Verdict = iota
	// Vanished means the path no longer exists.
	Vanished
	// NotRegular means the path is a directory, symlink target, or other special file.
	NotRegular
	// Hidden means the name marks a hidden or temporary file.
	Hidden
)

func (v Verdict) String() string {
	switch v {
	case Ready:
		return "ready"
	case Vanished:
		return "vanished"
	case NotRegular:
		return "not_regular"
	case Hidden:
		return "hidden"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Tracker holds the processed set for one engine lifetime. The set only grows.
type Tracker struct {
	delay time.Duration

	mu        sync.Mutex
	processed map[string]struct{}
}

// New constructs a tracker that waits delay before each Settle check.
func New(delay time.Duration) *Tracker {
	if delay < 0 {
		delay = 0
	}
	return &Tracker{delay: delay, processed: make(map[string]struct{})}
}

// ShouldProcess reports whether path has not been handled yet.
func (t *Tracker) ShouldProcess(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, done := t.processed[path]
	return !done
}

// MarkProcessed records path as handled. Marking twice is harmless.
func (t *Tracker) MarkProcessed(path string) {
	t.mu.Lock()
	t.processed[path] = struct{}{}
	t.mu.Unlock()
}

// Len returns the number of processed paths.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.processed)
}

// Settle waits the settle delay and then checks that path is still a visible
// regular file. It returns ctx.Err() if the wait is cancelled.
func (t *Tracker) Settle(ctx context.Context, path string) (Verdict, error) {
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Vanished, ctx.Err()
		case <-timer.C:
		}
	}
	return Inspect(path)
}

// Inspect classifies path without waiting.
func Inspect(path string) (Verdict, error) {
	if IsHidden(filepath.Base(path)) {
		return Hidden, nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Vanished, nil
		}
		return Vanished, fmt.Errorf("stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return NotRegular, nil
	}
	return Ready, nil
}

// IsHidden reports whether name is a dotfile or an editor/office temp file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~")
}
