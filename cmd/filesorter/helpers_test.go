package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"filesorter/internal/audit"
	"filesorter/internal/classify"
	"filesorter/internal/config"
	"filesorter/internal/daemon"
	"filesorter/internal/engine"
	"filesorter/internal/logging"
	"filesorter/internal/mover"
	"filesorter/internal/store"
	"filesorter/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	store      *store.Store
	daemon     *daemon.Daemon
}

// newCLIConfig writes cfg to a config file under a temp HOME.
func newCLIConfig(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FILESORTER_TOKEN", "")
	t.Setenv("FILESORTER_SERVICE_URL", "")
	t.Setenv("FILESORTER_NTFY_TOPIC", "")

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(home, ".config", "filesorter", "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

// startDaemon runs a daemon for env.cfg in-process.
func (env *cliTestEnv) startDaemon(t *testing.T) string {
	t.Helper()

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	logger := logging.NewNop()
	local := classify.NewLocal(logger)
	counter := engine.NewDailyCounter()
	sorter := &engine.Sorter{
		Classifier: local,
		Mover:      mover.New(logger),
		Audit:      audit.NewRecorder(st, nil, logger),
		Counter:    counter,
	}
	d, err := daemon.New(env.cfg, daemon.Options{
		Store:   st,
		Engine:  engine.New(env.cfg, sorter, nil, logger),
		Local:   local,
		Counter: counter,
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(t.Context()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	env.store = st
	env.daemon = d
	return d.APIAddress()
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiAddr != "" {
		flags = append(flags, "--api", apiAddr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
