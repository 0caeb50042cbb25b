// Package daemonrun wires the filesorter daemon process together.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"filesorter/internal/audit"
	"filesorter/internal/classify"
	"filesorter/internal/config"
	"filesorter/internal/daemon"
	"filesorter/internal/engine"
	"filesorter/internal/logging"
	"filesorter/internal/mover"
	"filesorter/internal/notifications"
	"filesorter/internal/services/backend"
	"filesorter/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the filesorter daemon and blocks until SIGINT/SIGTERM or cmdCtx
// is cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("filesorter-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "filesorter-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.StateDir, "filesorter.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logConfigSnapshot(logger, cfg)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return err
	}

	client := backend.NewFromConfig(cfg)
	var (
		remote audit.Remote
		rules  daemon.RuleSource
	)
	if client != nil {
		remote = client
		rules = client
	}

	local := classify.NewLocal(logger)
	notifier := notifications.NewService(cfg)
	counter := engine.NewDailyCounter()
	sorter := &engine.Sorter{
		Classifier:   classify.NewProvider(cfg, client, local, logger),
		Mover:        mover.New(logger),
		Audit:        audit.NewRecorder(st, remote, logger),
		Notifier:     notifier,
		Counter:      counter,
		DashboardURL: cfg.Service.DashboardURL,
		Logger:       logger,
	}
	eng := engine.New(cfg, sorter, nil, logger)

	d, err := daemon.New(cfg, daemon.Options{
		Store:    st,
		Engine:   eng,
		Local:    local,
		Rules:    rules,
		Remote:   remote,
		Counter:  counter,
		Notifier: notifier,
	}, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, the lock file, and api.bind"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("filesorter daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Any("folders", cfg.Watch.Folders),
		logging.Int("settle_delay_seconds", cfg.Watch.SettleDelaySeconds),
		logging.String("classifier_mode", cfg.Classifier.Mode),
		logging.Bool("remote_enabled", cfg.RemoteEnabled()),
		logging.String("service_url", cfg.Service.URL),
		logging.Int("config_rules", len(cfg.Classifier.Rules)),
		logging.Bool("notifications", cfg.Notifications.Enabled && cfg.Notifications.NtfyTopic != ""),
		logging.String("api_bind", cfg.API.Bind),
	)
}
