package main

import (
	"context"
	"log/slog"

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

// cliLogger writes warnings and errors to stderr so command output stays clean.
func cliLogger(verbose bool) *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

type sorterOptions struct {
	localOnly bool
}

// newSorter assembles the same pipeline the daemon runs, seeded with the
// stored rules. st may be nil, in which case nothing is recorded.
func newSorter(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger, opts sorterOptions) *engine.Sorter {
	local := classify.NewLocal(logger)
	local.SetRules(daemon.StoredRules(ctx, st, cfg, logger).Rules)

	var client *backend.Client
	if !opts.localOnly {
		client = backend.NewFromConfig(cfg)
	}
	var remote audit.Remote
	if client != nil {
		remote = client
	}

	sorter := &engine.Sorter{
		Classifier:   classify.NewProvider(cfg, client, local, logger),
		Mover:        mover.New(logger),
		Notifier:     notifications.NewService(cfg),
		DashboardURL: cfg.Service.DashboardURL,
		Logger:       logger,
	}
	if st != nil {
		sorter.Audit = audit.NewRecorder(st, remote, logger)
	}
	return sorter
}
