package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"filesorter/internal/classify"
	"filesorter/internal/config"
	"filesorter/internal/logging"
	"filesorter/internal/services/backend"
	"filesorter/internal/store"
)

// Rule sources reported by Status.
const (
	RuleSourceService = "service"
	RuleSourceCache   = "cache"
	RuleSourceConfig  = "config"
)

// RuleSource fetches the user's rules from the classification service.
type RuleSource interface {
	FetchRules(ctx context.Context) ([]backend.Rule, error)
}

// SyncRules fetches rules from the service, caches them for offline use and
// installs them in the local classifier. On failure the current rules stay
// active. It returns how many rules were installed and how many were skipped
// as invalid.
func (d *Daemon) SyncRules(ctx context.Context) (int, int, error) {
	if d.rules == nil {
		return 0, 0, errors.New("no classification service configured")
	}
	wire, err := d.rules.FetchRules(ctx)
	if err != nil {
		d.recordSync(time.Time{}, "", err)
		logging.WarnWithContext(d.logger, "rule sync failed; keeping current rules", "rule_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check service.url and service.access_token"),
			logging.String(logging.FieldImpact, "rule changes on the dashboard are not applied yet"),
		)
		return 0, 0, err
	}

	rules, errs := classify.FromWireAll(wire)
	for _, convErr := range errs {
		d.logger.Warn("skipping unusable rule from service",
			logging.Error(convErr),
			logging.String(logging.FieldEventType, "rule_sync_rule_skipped"),
			logging.String(logging.FieldErrorHint, "fix the rule on the dashboard"),
			logging.String(logging.FieldImpact, "rule ignored"),
		)
	}

	cached := make([]store.CachedRule, 0, len(rules))
	for _, rule := range rules {
		w := rule.Wire()
		cached = append(cached, store.CachedRule{
			ID:             w.ID,
			Name:           w.Name,
			ConditionType:  w.ConditionType,
			ConditionValue: w.ConditionValue,
			Destination:    w.Destination,
			Priority:       w.Priority,
		})
	}
	if err := d.store.ReplaceRules(ctx, cached); err != nil {
		d.logger.Warn("failed to cache rules",
			logging.Error(err),
			logging.String(logging.FieldEventType, "rule_cache_failed"),
			logging.String(logging.FieldImpact, "offline classification uses older rules"),
		)
	}
	d.local.SetRules(rules)
	d.recordSync(time.Now(), RuleSourceService, nil)
	d.logger.Info("rules synced",
		logging.String(logging.FieldEventType, "rule_sync_completed"),
		logging.Int("rules", len(rules)),
		logging.Int("skipped", len(errs)),
	)
	return len(rules), len(errs), nil
}

// loadRules installs cached service rules, or the config file rules when no
// cache exists yet.
func (d *Daemon) loadRules(ctx context.Context) {
	set := StoredRules(ctx, d.store, d.cfg, d.logger)
	d.local.SetRules(set.Rules)
	d.recordSync(set.SyncedAt, set.Source, nil)
	if len(set.Rules) > 0 || set.Source == RuleSourceCache {
		d.logger.Info("loaded rules",
			logging.String("source", set.Source),
			logging.Int("rules", len(set.Rules)),
		)
	}
}

// RuleSet is the rule list a classifier starts with.
type RuleSet struct {
	Rules    []classify.Rule
	Source   string
	SyncedAt time.Time
}

// StoredRules returns the cached service rules, or the config file rules when
// nothing has been synced yet. A sync that returned no rules still counts, so
// an emptied dashboard rule list is not replaced by config rules on restart.
// st may be nil.
func StoredRules(ctx context.Context, st *store.Store, cfg *config.Config, logger *slog.Logger) RuleSet {
	if logger == nil {
		logger = logging.NewNop()
	}
	if st != nil {
		syncedAt, synced, err := st.RulesSyncedAt(ctx)
		if err != nil {
			logger.Warn("failed to read rule sync marker", logging.Error(err))
		}
		cached, err := st.Rules(ctx)
		if err != nil {
			logger.Warn("failed to read cached rules", logging.Error(err))
		}
		if synced || len(cached) > 0 {
			wire := make([]backend.Rule, 0, len(cached))
			for _, c := range cached {
				wire = append(wire, backend.Rule{
					ID:             c.ID,
					Name:           c.Name,
					ConditionType:  c.ConditionType,
					ConditionValue: c.ConditionValue,
					Destination:    c.Destination,
					Priority:       c.Priority,
				})
			}
			rules, errs := classify.FromWireAll(wire)
			for _, convErr := range errs {
				logger.Debug("cached rule unusable", logging.Error(convErr))
			}
			if !synced {
				syncedAt = cached[0].SyncedAt
			}
			return RuleSet{Rules: rules, Source: RuleSourceCache, SyncedAt: syncedAt}
		}
	}
	var configured []config.Rule
	if cfg != nil {
		configured = cfg.Classifier.Rules
	}
	return RuleSet{Rules: classify.FromConfig(configured), Source: RuleSourceConfig}
}

func (d *Daemon) recordSync(at time.Time, source string, err error) {
	d.syncMu.Lock()
	defer d.syncMu.Unlock()
	d.lastSyncErr = err
	if err != nil {
		return
	}
	d.lastSync = at
	d.ruleSource = source
}
