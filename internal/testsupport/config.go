package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"filesorter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// One watched folder, "watched", is created under the base directory. The
// service token is cleared so nothing reaches the network by default.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Watch.Folders = []string{filepath.Join(base, "watched")}
	cfgVal.Watch.SettleDelaySeconds = 0
	cfgVal.Service.AccessToken = ""
	cfgVal.Notifications.Enabled = false
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	for _, folder := range builder.cfg.Watch.Folders {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			t.Fatalf("mkdir watched folder: %v", err)
		}
	}
	return builder.cfg
}

// WithService points the config at a classification service.
func WithService(url, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.URL = url
		b.cfg.Service.AccessToken = token
	}
}

// WithClassifierMode overrides the classifier mode.
func WithClassifierMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classifier.Mode = mode
	}
}

// WithRules sets local classifier rules.
func WithRules(rules ...config.Rule) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classifier.Rules = rules
	}
}

// WithNtfyTopic enables notifications to topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.Enabled = true
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithExtraFolder adds another watched folder named name under the base directory.
func WithExtraFolder(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Folders = append(b.cfg.Watch.Folders, filepath.Join(b.baseDir, name))
	}
}

// WatchedDir returns the first watched folder.
func WatchedDir(cfg *config.Config) string {
	return cfg.Watch.Folders[0]
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
