package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"filesorter/internal/audit"
	"filesorter/internal/classify"
	"filesorter/internal/config"
	"filesorter/internal/engine"
	"filesorter/internal/logging"
	"filesorter/internal/notifications"
	"filesorter/internal/services"
	"filesorter/internal/store"
)

// Options carries the collaborators wired by the process entry point.
// Rules and Remote are nil when the agent runs without a service.
type Options struct {
	Store    *store.Store
	Engine   *engine.Engine
	Local    *classify.Local
	Rules    RuleSource
	Remote   audit.Remote
	Counter  *engine.DailyCounter
	Notifier notifications.Service
}

// Daemon coordinates the engine and its background services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	engine   *engine.Engine
	local    *classify.Local
	rules    RuleSource
	remote   audit.Remote
	counter  *engine.DailyCounter
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	api     *apiServer

	syncMu      sync.Mutex
	ruleSource  string
	lastSync    time.Time
	lastSyncErr error
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Engine         engine.Status
	PendingActions int
	RuleCount      int
	RuleSource     string
	LastRuleSync   time.Time
	LastSyncError  string
	Folders        []FolderHealth
	DatabasePath   string
	LockFilePath   string
	LogPath        string
}

// FolderHealth reports whether a watched folder can receive sorted files.
type FolderHealth struct {
	Path     string
	Exists   bool
	Writable bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || opts.Store == nil || opts.Engine == nil || opts.Local == nil {
		return nil, errors.New("daemon requires config, store, engine, and local classifier")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    opts.Store,
		engine:   opts.Engine,
		local:    opts.Local,
		rules:    opts.Rules,
		remote:   opts.Remote,
		counter:  opts.Counter,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, starts the engine, the background loops and the
// control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "daemon", "acquire lock", "another filesorter daemon instance is already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.seedCounter(runCtx)
	d.loadRules(runCtx)

	if err := d.engine.Start(runCtx, d.cfg.Watch.Folders); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start engine: %w", err)
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = api.start(runCtx)
	}
	if err != nil {
		cancel()
		d.engine.Stop()
		_ = d.lock.Unlock()
		return fmt.Errorf("start control api: %w", err)
	}
	d.api = api
	d.cancel = cancel

	if d.rules != nil {
		d.startLoop(runCtx, "rule-sync", time.Duration(d.cfg.Service.RulesSyncIntervalSeconds)*time.Second, func(ctx context.Context) {
			_, _, _ = d.SyncRules(ctx)
		})
	}
	if d.remote != nil {
		d.startLoop(runCtx, "audit-flush", time.Duration(d.cfg.Audit.FlushIntervalSeconds)*time.Second, func(ctx context.Context) {
			_, _ = d.FlushPending(ctx)
		})
	}

	d.running.Store(true)
	d.logger.Info("filesorter daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
		logging.Bool("remote", d.rules != nil),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	d.api = nil
	d.engine.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start reports a running instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("filesorter daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddress returns the control API listen address, or "" when disabled.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Pause stops new files from being handled until Resume.
func (d *Daemon) Pause() {
	d.engine.Paused().Pause()
	d.logger.Info("sorting paused", logging.String(logging.FieldEventType, "daemon_paused"))
}

// Resume lets new files through again. Events that arrived while paused are
// not replayed.
func (d *Daemon) Resume() {
	d.engine.Paused().Resume()
	d.logger.Info("sorting resumed", logging.String(logging.FieldEventType, "daemon_resumed"))
}

// History returns recent actions, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]audit.Record, error) {
	return d.store.RecentActions(ctx, limit)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.TestNotification(ctx)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Engine:       d.engine.Status(),
		RuleCount:    len(d.local.Rules()),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if pending, err := d.store.CountPending(ctx); err == nil {
		status.PendingActions = pending
	} else {
		d.logger.Warn("failed to count pending actions", logging.Error(err))
	}

	d.syncMu.Lock()
	status.RuleSource = d.ruleSource
	status.LastRuleSync = d.lastSync
	if d.lastSyncErr != nil {
		status.LastSyncError = d.lastSyncErr.Error()
	}
	d.syncMu.Unlock()

	for _, folder := range d.cfg.Watch.Folders {
		status.Folders = append(status.Folders, folderHealth(folder))
	}
	return status
}

func folderHealth(path string) FolderHealth {
	health := FolderHealth{Path: path}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return health
	}
	health.Exists = true
	health.Writable = unix.Access(path, unix.W_OK) == nil
	return health
}

// seedCounter restores today's move count from history so a restart does not
// reset the figure shown by status.
func (d *Daemon) seedCounter(ctx context.Context) {
	if d.counter == nil {
		return
	}
	count, err := d.store.CountSince(ctx, engine.StartOfDay(time.Now()))
	if err != nil {
		d.logger.Warn("failed to read today's move count",
			logging.Error(err),
			logging.String(logging.FieldEventType, "counter_seed_failed"),
			logging.String(logging.FieldImpact, "files-today starts from zero"),
		)
		return
	}
	d.counter.Seed(count)
}

func (d *Daemon) startLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.logger.Debug("background loop started", logging.String("loop", name), logging.Duration("interval", interval))
		fn(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}
