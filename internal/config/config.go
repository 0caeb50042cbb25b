package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Watch contains the watched folder set and debounce timing.
type Watch struct {
	Folders            []string `toml:"folders"`
	SettleDelaySeconds int      `toml:"settle_delay_seconds"`
	QueueCapacity      int      `toml:"queue_capacity"`
}

// Service contains the remote classification service connection settings.
type Service struct {
	URL                      string `toml:"url"`
	AccessToken              string `toml:"access_token"`
	DashboardURL             string `toml:"dashboard_url"`
	TimeoutSeconds           int    `toml:"timeout_seconds"`
	RequestsPerMinute        int    `toml:"requests_per_minute"`
	RulesSyncIntervalSeconds int    `toml:"rules_sync_interval_seconds"`
}

// Rule is a locally configured classification rule. It is only consulted when
// no classification service is configured; synced service rules replace it.
type Rule struct {
	ID            string   `toml:"id"`
	Name          string   `toml:"name"`
	Type          string   `toml:"type"`
	Extensions    []string `toml:"extensions"`
	Keywords      []string `toml:"keywords"`
	CaseSensitive bool     `toml:"case_sensitive"`
	Pattern       string   `toml:"pattern"`
	Destination   string   `toml:"destination"`
	Priority      int      `toml:"priority"`
}

// Classifier selects the classification provider and carries local rules.
type Classifier struct {
	// Mode is one of "auto", "remote" or "local". Auto uses the service when
	// a URL and token are configured and falls back to local rules when the
	// service is unreachable.
	Mode  string `toml:"mode"`
	Rules []Rule `toml:"rules"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	Enabled        bool   `toml:"enabled"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// API contains the local control API settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Audit contains the pending action queue flush settings.
type Audit struct {
	FlushIntervalSeconds int `toml:"flush_interval_seconds"`
	FlushBatchSize       int `toml:"flush_batch_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for filesorter.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Service       Service       `toml:"service"`
	Classifier    Classifier    `toml:"classifier"`
	Notifications Notifications `toml:"notifications"`
	API           API           `toml:"api"`
	Audit         Audit         `toml:"audit"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("filesorter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
// Watched folders are never created: a missing folder is skipped at watch time.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the local history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "filesorter.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "filesorter.lock")
}

// RemoteEnabled reports whether a classification service is configured and
// selected by the classifier mode.
func (c *Config) RemoteEnabled() bool {
	if c.Classifier.Mode == ModeLocal {
		return false
	}
	return strings.TrimSpace(c.Service.URL) != "" && strings.TrimSpace(c.Service.AccessToken) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
