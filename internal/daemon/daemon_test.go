package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"filesorter/internal/api"
	"filesorter/internal/audit"
	"filesorter/internal/classify"
	"filesorter/internal/config"
	"filesorter/internal/daemon"
	"filesorter/internal/engine"
	"filesorter/internal/logging"
	"filesorter/internal/mover"
	"filesorter/internal/services"
	"filesorter/internal/services/backend"
	"filesorter/internal/store"
	"filesorter/internal/testsupport"
)

type ruleSourceStub struct {
	rules []backend.Rule
	err   error
}

func (s *ruleSourceStub) FetchRules(context.Context) ([]backend.Rule, error) {
	return s.rules, s.err
}

type remoteStub struct {
	delivered []backend.ActionLogRequest
}

func (r *remoteStub) LogAction(_ context.Context, req backend.ActionLogRequest) error {
	r.delivered = append(r.delivered, req)
	return nil
}

type fixture struct {
	cfg     *config.Config
	store   *store.Store
	local   *classify.Local
	counter *engine.DailyCounter
	daemon  *daemon.Daemon
}

func newFixture(t *testing.T, cfg *config.Config, rules daemon.RuleSource, remote audit.Remote) *fixture {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	local := classify.NewLocal(logging.NewNop())
	counter := engine.NewDailyCounter()
	sorter := &engine.Sorter{
		Classifier: local,
		Mover:      mover.New(logging.NewNop()),
		Audit:      audit.NewRecorder(st, remote, logging.NewNop()),
		Counter:    counter,
	}
	eng := engine.New(cfg, sorter, nil, logging.NewNop())
	d, err := daemon.New(cfg, daemon.Options{
		Store:   st,
		Engine:  eng,
		Local:   local,
		Rules:   rules,
		Remote:  remote,
		Counter: counter,
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &fixture{cfg: cfg, store: st, local: local, counter: counter, daemon: d}
}

func keywordRule(id, keyword, dest string) backend.Rule {
	value, _ := json.Marshal(map[string]any{"keywords": []string{keyword}})
	return backend.Rule{ID: id, Name: dest, ConditionType: "keyword", ConditionValue: value, Destination: dest, Priority: 1}
}

func TestDaemonStartStop(t *testing.T) {
	f := newFixture(t, testsupport.NewConfig(t), nil, nil)
	ctx := context.Background()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := f.daemon.Status(ctx)
	if !status.Running || !status.Engine.Running {
		t.Fatalf("expected daemon and engine running, got %+v", status)
	}
	if len(status.Folders) != 1 || !status.Folders[0].Exists || !status.Folders[0].Writable {
		t.Fatalf("unexpected folder health: %+v", status.Folders)
	}
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	if f.daemon.Running() || f.daemon.Status(ctx).Engine.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newFixture(t, cfg, nil, nil)
	if err := first.daemon.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	second := newFixture(t, cfg, nil, nil)
	err := second.daemon.Start(context.Background())
	if err == nil {
		t.Fatal("expected lock contention error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestDaemonSeedsDailyCounterFromHistory(t *testing.T) {
	f := newFixture(t, testsupport.NewConfig(t), nil, nil)
	ctx := context.Background()
	if err := f.store.RecordAction(ctx, audit.Record{ID: "today", Filename: "a.pdf", Timestamp: time.Now()}); err != nil {
		t.Fatalf("RecordAction: %v", err)
	}
	if err := f.store.RecordAction(ctx, audit.Record{ID: "old", Filename: "b.pdf", Timestamp: time.Now().Add(-72 * time.Hour)}); err != nil {
		t.Fatalf("RecordAction: %v", err)
	}
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := f.counter.Value(); got != 1 {
		t.Fatalf("expected files today 1, got %d", got)
	}
}

func TestDaemonUsesConfigRulesWithoutCache(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRules(config.Rule{
		ID: "inv", Name: "Invoices", Type: "keyword", Keywords: []string{"invoice"}, Destination: "Finance",
	}))
	f := newFixture(t, cfg, nil, nil)
	if err := f.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rules := f.local.Rules()
	if len(rules) != 1 || rules[0].ID != "inv" {
		t.Fatalf("expected config rule installed, got %+v", rules)
	}
	if got := f.daemon.Status(context.Background()).RuleSource; got != daemon.RuleSourceConfig {
		t.Fatalf("expected config rule source, got %q", got)
	}
}

func TestDaemonSyncRulesCachesForOfflineUse(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &ruleSourceStub{rules: []backend.Rule{
		keywordRule("r1", "invoice", "Finance"),
		keywordRule("bad", "x", "../escape"),
	}}
	f := newFixture(t, cfg, source, nil)
	ctx := context.Background()

	synced, skipped, err := f.daemon.SyncRules(ctx)
	if err != nil {
		t.Fatalf("SyncRules failed: %v", err)
	}
	if synced != 1 || skipped != 1 {
		t.Fatalf("expected 1 synced 1 skipped, got %d/%d", synced, skipped)
	}
	cached, err := f.store.Rules(ctx)
	if err != nil || len(cached) != 1 || cached[0].ID != "r1" {
		t.Fatalf("unexpected cache: %+v err=%v", cached, err)
	}
	_ = f.daemon.Close()

	offline := newFixture(t, cfg, &ruleSourceStub{err: errors.New("connection refused")}, nil)
	if err := offline.daemon.Start(ctx); err != nil {
		t.Fatalf("offline Start failed: %v", err)
	}
	testsupport.Eventually(t, 2*time.Second, func() bool {
		return offline.daemon.Status(ctx).LastSyncError != ""
	}, "sync failure recorded")
	rules := offline.local.Rules()
	if len(rules) != 1 || rules[0].ID != "r1" {
		t.Fatalf("expected cached rule after failed sync, got %+v", rules)
	}
	if got := offline.daemon.Status(ctx).RuleSource; got != daemon.RuleSourceCache {
		t.Fatalf("expected cache rule source, got %q", got)
	}
}

func TestStoredRulesPrefersCache(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRules(config.Rule{
		ID: "cfg", Type: "extension", Extensions: []string{".pdf"}, Destination: "Docs",
	}))
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	set := daemon.StoredRules(ctx, st, cfg, nil)
	if set.Source != daemon.RuleSourceConfig || len(set.Rules) != 1 || set.Rules[0].ID != "cfg" {
		t.Fatalf("expected config rules before any sync, got %+v", set)
	}

	wire := keywordRule("svc", "invoice", "Finance")
	if err := st.ReplaceRules(ctx, []store.CachedRule{{
		ID:             wire.ID,
		Name:           wire.Name,
		ConditionType:  wire.ConditionType,
		ConditionValue: wire.ConditionValue,
		Destination:    wire.Destination,
		Priority:       wire.Priority,
	}}); err != nil {
		t.Fatalf("ReplaceRules: %v", err)
	}
	set = daemon.StoredRules(ctx, st, cfg, nil)
	if set.Source != daemon.RuleSourceCache || len(set.Rules) != 1 || set.Rules[0].ID != "svc" {
		t.Fatalf("expected cached rules, got %+v", set)
	}
	if set.SyncedAt.IsZero() {
		t.Fatal("expected sync time from cache")
	}
}

func TestEmptyRuleSyncStaysAuthoritative(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRules(config.Rule{
		ID: "cfg", Type: "extension", Extensions: []string{".pdf"}, Destination: "Docs",
	}))
	f := newFixture(t, cfg, &ruleSourceStub{rules: []backend.Rule{}}, nil)
	ctx := context.Background()

	synced, skipped, err := f.daemon.SyncRules(ctx)
	if err != nil || synced != 0 || skipped != 0 {
		t.Fatalf("expected empty sync, got %d/%d err=%v", synced, skipped, err)
	}
	if rules := f.local.Rules(); len(rules) != 0 {
		t.Fatalf("expected no rules installed after empty sync, got %+v", rules)
	}

	set := daemon.StoredRules(ctx, f.store, cfg, nil)
	if set.Source != daemon.RuleSourceCache || len(set.Rules) != 0 {
		t.Fatalf("expected empty cached rule set, got %+v", set)
	}
	if set.SyncedAt.IsZero() {
		t.Fatal("expected sync time for empty rule set")
	}
}

func TestDaemonFlushPending(t *testing.T) {
	remote := &remoteStub{}
	f := newFixture(t, testsupport.NewConfig(t), nil, remote)
	ctx := context.Background()
	if err := f.store.EnqueuePending(ctx, audit.Record{ID: "p1", Filename: "a.pdf", Category: "Documents"}, errors.New("offline")); err != nil {
		t.Fatalf("EnqueuePending: %v", err)
	}

	result, err := f.daemon.FlushPending(ctx)
	if err != nil {
		t.Fatalf("FlushPending failed: %v", err)
	}
	if result.Delivered != 1 || len(remote.delivered) != 1 {
		t.Fatalf("expected one delivery, got %+v (%d)", result, len(remote.delivered))
	}
	if count, _ := f.store.CountPending(ctx); count != 0 {
		t.Fatalf("expected queue drained, got %d", count)
	}
}

func TestDaemonControlAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = "secret"
	f := newFixture(t, cfg, nil, nil)
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	addr := f.daemon.APIAddress()
	if addr == "" {
		t.Fatal("expected api address")
	}

	if _, err := api.NewClient(addr, "wrong").Status(ctx); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized with wrong token, got %v", err)
	}

	client := api.NewClient(addr, "secret")
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running || status.Engine.Paused || status.RemoteEnabled {
		t.Fatalf("unexpected status: %+v", status)
	}

	if resp, err := client.Pause(ctx); err != nil || !resp.Paused {
		t.Fatalf("Pause: %+v err=%v", resp, err)
	}
	if status, _ := client.Status(ctx); !status.Engine.Paused {
		t.Fatal("expected paused after pause call")
	}
	if resp, err := client.Resume(ctx); err != nil || resp.Paused {
		t.Fatalf("Resume: %+v err=%v", resp, err)
	}

	src := filepath.Join(testsupport.WatchedDir(cfg), "invoice.pdf")
	testsupport.WriteFile(t, src, "pdf")
	testsupport.Eventually(t, 5*time.Second, func() bool {
		history, err := client.History(ctx, 5)
		return err == nil && len(history.Actions) == 1
	}, "history lists the sorted file")

	history, _ := client.History(ctx, 5)
	if got := history.Actions[0]; got.Filename != "invoice.pdf" || got.Category != "Documents" {
		t.Fatalf("unexpected history entry: %+v", got)
	}

	if _, err := client.SyncRules(ctx); err == nil {
		t.Fatal("expected rule sync to fail without a service")
	}
}
