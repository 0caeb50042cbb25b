package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"filesorter/internal/engine"
	"filesorter/internal/logging"
	"filesorter/internal/notifications"
	"filesorter/internal/services"
	"filesorter/internal/tracker"
)

// Item is the result for one file in a batch.
type Item struct {
	Source      string
	Destination string
	Category    string
	Method      string
	Action      engine.Action
	Err         error
}

// Report summarizes a batch.
type Report struct {
	Folder   string
	DryRun   bool
	Items    []Item
	Moved    int
	Planned  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Options controls a batch run.
type Options struct {
	DryRun bool
}

// Organizer runs batches through a Sorter. Notifier may be nil.
type Organizer struct {
	sorter   *engine.Sorter
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs an organizer.
func New(sorter *engine.Sorter, notifier notifications.Service, logger *slog.Logger) *Organizer {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Organizer{
		sorter:   sorter,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "organize"),
	}
}

// Run sorts every visible regular file at the top level of folder.
func (o *Organizer) Run(ctx context.Context, folder string, opts Options) (Report, error) {
	report := Report{Folder: folder, DryRun: opts.DryRun}
	if o.sorter == nil || o.sorter.Classifier == nil || o.sorter.Mover == nil {
		return report, services.Wrap(services.ErrConfiguration, "organize", "run", "sorter is not configured", nil)
	}
	files, err := scan(folder)
	if err != nil {
		return report, services.Wrap(services.ErrValidation, "organize", "scan folder", folder, err)
	}

	// Per-file pushes are replaced by one summary at the end of the batch.
	batch := *o.sorter
	batch.Notifier = nil

	started := time.Now()
	quotaNotified := false
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var (
			outcome engine.Outcome
			sortErr error
		)
		if opts.DryRun {
			outcome, sortErr = batch.Plan(ctx, path)
		} else {
			outcome, sortErr = batch.Sort(ctx, path)
		}
		item := Item{Source: path, Action: outcome.Action, Err: sortErr}
		if sortErr == nil {
			item.Destination = outcome.Destination
			item.Category = outcome.Result.Category
			item.Method = string(outcome.Result.Method)
		}
		report.Items = append(report.Items, item)

		switch {
		case sortErr != nil:
			report.Failed++
			var stageErr *engine.StageError
			stage := ""
			if errors.As(sortErr, &stageErr) {
				stage = stageErr.Stage
			}
			o.logger.Warn("organize item failed",
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldStage, stage),
				logging.Error(sortErr),
			)
			if !quotaNotified && errors.Is(sortErr, services.ErrQuota) {
				quotaNotified = true
				if err := o.notifier.NotifyQuotaExceeded(ctx, batch.DashboardURL); err != nil {
					o.logger.Debug("quota notification failed", logging.Error(err))
				}
			}
		case outcome.Action == engine.ActionMoved:
			report.Moved++
		case outcome.Action == engine.ActionPlanned:
			report.Planned++
		default:
			report.Skipped++
		}
	}
	report.Duration = time.Since(started)

	o.logger.Info("organize finished",
		logging.String(logging.FieldEventType, "organize_completed"),
		logging.String("folder", folder),
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("moved", report.Moved),
		logging.Int("planned", report.Planned),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", report.Duration),
	)
	if !opts.DryRun && len(files) > 0 {
		if err := o.notifier.NotifyOrganizeCompleted(ctx, report.Moved, report.Skipped, report.Failed, report.Duration); err != nil {
			o.logger.Debug("organize notification failed", logging.Error(err))
		}
	}
	return report, nil
}

func scan(folder string) ([]string, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(abs, entry.Name())
		verdict, err := tracker.Inspect(path)
		if err != nil || verdict != tracker.Ready {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
