// Package watcher reports files that appear or change in watched folders.
//
// Watches are non-recursive: only direct children of each folder are
// reported. Paths are sent on the caller's channel with a blocking send, so a
// slow consumer applies backpressure instead of losing events.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"filesorter/internal/logging"
	"filesorter/internal/services"
)

// Source emits absolute paths of candidate files until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out chan<- string) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, out chan<- string) error

// Run calls f.
func (f SourceFunc) Run(ctx context.Context, out chan<- string) error {
	return f(ctx, out)
}

// FSWatcher watches folders with fsnotify.
type FSWatcher struct {
	folders []string
	logger  *slog.Logger
}

// New returns a watcher for folders.
func New(folders []string, logger *slog.Logger) *FSWatcher {
	return &FSWatcher{
		folders: append([]string(nil), folders...),
		logger:  logging.NewComponentLogger(logger, "watcher"),
	}
}

// Folders returns the configured folders.
func (w *FSWatcher) Folders() []string {
	return append([]string(nil), w.folders...)
}

// Run installs the watches and forwards events until ctx is done. A folder
// that cannot be watched is logged and skipped.
func (w *FSWatcher) Run(ctx context.Context, out chan<- string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "create watcher", "Could not initialize file watching", err)
	}
	defer fsw.Close()

	if installed := w.install(fsw); installed == 0 {
		w.logger.Warn("no folders are being watched",
			logging.String(logging.FieldEventType, "watch_none_installed"),
			logging.String(logging.FieldErrorHint, "check watch.folders in config.toml"),
			logging.String(logging.FieldImpact, "new files will not be sorted"),
		)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, forward := w.accept(event)
			if !forward {
				continue
			}
			select {
			case out <- path:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch backend error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_backend_error"),
				logging.String(logging.FieldImpact, "some file events may be missed"),
			)
		}
	}
}

func (w *FSWatcher) install(fsw *fsnotify.Watcher) int {
	installed := 0
	for _, folder := range w.folders {
		if err := addFolder(fsw, folder); err != nil {
			w.logger.Warn("cannot watch folder",
				logging.Path(folder),
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_install_failed"),
				logging.String(logging.FieldErrorHint, "create the folder or remove it from watch.folders"),
			)
			continue
		}
		installed++
		w.logger.Info("watching folder",
			logging.Path(folder),
			logging.String(logging.FieldEventType, "watch_installed"),
		)
	}
	return installed
}

func addFolder(fsw *fsnotify.Watcher, folder string) error {
	info, err := os.Stat(folder)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", folder)
	}
	return fsw.Add(folder)
}

func (w *FSWatcher) accept(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	w.logger.Debug("file event", logging.Path(path), logging.String("op", event.Op.String()))
	return path, true
}
