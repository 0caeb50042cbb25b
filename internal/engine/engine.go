package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"filesorter/internal/config"
	"filesorter/internal/logging"
	"filesorter/internal/services"
	"filesorter/internal/tracker"
	"filesorter/internal/watcher"
)

// Engine watches folders and sorts arriving files.
type Engine struct {
	// NewSource builds the event source for a watch set. It defaults to an
	// fsnotify watcher and is replaced in tests.
	NewSource func(folders []string, logger *slog.Logger) watcher.Source

	sorter        *Sorter
	tracker       *tracker.Tracker
	paused        *PauseFlag
	queueCapacity int
	logger        *slog.Logger

	// lifecycleMu serializes Start and Stop so wg is never reused while a
	// previous run is still being waited on.
	lifecycleMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	folders  []string
	runID    string
	lastErr  error
	lastFile string
}

// New constructs a stopped engine. paused may be nil.
func New(cfg *config.Config, sorter *Sorter, paused *PauseFlag, logger *slog.Logger) *Engine {
	settle := tracker.DefaultSettleDelay
	capacity := 100
	if cfg != nil {
		settle = time.Duration(cfg.Watch.SettleDelaySeconds) * time.Second
		if cfg.Watch.QueueCapacity > 0 {
			capacity = cfg.Watch.QueueCapacity
		}
	}
	if paused == nil {
		paused = &PauseFlag{}
	}
	return &Engine{
		NewSource: func(folders []string, logger *slog.Logger) watcher.Source {
			return watcher.New(folders, logger)
		},
		sorter:        sorter,
		tracker:       tracker.New(settle),
		paused:        paused,
		queueCapacity: capacity,
		logger:        logging.NewComponentLogger(logger, "engine"),
	}
}

// Start begins watching folders. Calling Start while running stops the
// current run first and replaces the watch set.
func (e *Engine) Start(ctx context.Context, folders []string) error {
	if e.sorter == nil || e.sorter.Classifier == nil || e.sorter.Mover == nil {
		return services.Wrap(services.ErrConfiguration, "engine", "start", "sorter is not configured", nil)
	}
	if len(folders) == 0 {
		return services.Wrap(services.ErrConfiguration, "engine", "start", "no folders to watch", nil)
	}

	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	e.stopLocked()

	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(services.WithRunID(ctx, runID))
	e.cancel = cancel
	e.running = true
	e.folders = append([]string(nil), folders...)
	e.runID = runID

	events := make(chan string, e.queueCapacity)
	source := e.NewSource(e.folders, e.logger)

	e.wg.Add(2)
	go e.watch(runCtx, source, events)
	go e.consume(runCtx, events)

	e.logger.Info("engine started",
		logging.String(logging.FieldEventType, "engine_started"),
		logging.String(logging.FieldRunID, runID),
		logging.Any("folders", e.folders),
	)
	return nil
}

// Stop cancels the current run and waits for the watcher and the consumer to
// exit. A file already past settling finishes its move first. Stop on a
// stopped engine does nothing.
func (e *Engine) Stop() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	runID := e.runID
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	e.logger.Info("engine stopped",
		logging.String(logging.FieldEventType, "engine_stopped"),
		logging.String(logging.FieldRunID, runID),
	)
}

// Running reports whether the engine is watching.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Paused exposes the shared pause flag.
func (e *Engine) Paused() *PauseFlag {
	return e.paused
}

// Status is a point-in-time view of the engine.
type Status struct {
	Running    bool
	Paused     bool
	Folders    []string
	RunID      string
	FilesToday int
	Processed  int
	LastFile   string
	LastError  string
}

// Status reports the engine state.
func (e *Engine) Status() Status {
	e.mu.RLock()
	status := Status{
		Running:  e.running,
		Folders:  append([]string(nil), e.folders...),
		RunID:    e.runID,
		LastFile: e.lastFile,
	}
	if e.lastErr != nil {
		status.LastError = e.lastErr.Error()
	}
	e.mu.RUnlock()

	status.Paused = e.paused.Paused()
	status.Processed = e.tracker.Len()
	if e.sorter != nil {
		status.FilesToday = e.sorter.Counter.Value()
	}
	return status
}

func (e *Engine) watch(ctx context.Context, source watcher.Source, events chan<- string) {
	defer e.wg.Done()
	if err := source.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		e.setLastError(err)
		logging.ErrorWithContext(e.logger, "watcher stopped", "watcher_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the watched folders are readable"),
			logging.String(logging.FieldImpact, "new files will not be sorted until the engine restarts"),
		)
	}
}

func (e *Engine) consume(ctx context.Context, events <-chan string) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-events:
			e.handle(ctx, path)
		}
	}
}

func (e *Engine) setLastError(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

func (e *Engine) setLastFile(path string) {
	e.mu.Lock()
	e.lastFile = path
	e.mu.Unlock()
}
