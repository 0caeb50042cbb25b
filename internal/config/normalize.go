package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizeClassifier()
	c.normalizeNotifications()
	c.normalizeAPI()
	c.normalizeAudit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() error {
	folders := make([]string, 0, len(c.Watch.Folders))
	seen := make(map[string]struct{}, len(c.Watch.Folders))
	for _, folder := range c.Watch.Folders {
		if strings.TrimSpace(folder) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(folder))
		if err != nil {
			return fmt.Errorf("watch.folders: %w", err)
		}
		if _, exists := seen[expanded]; exists {
			continue
		}
		seen[expanded] = struct{}{}
		folders = append(folders, expanded)
	}
	c.Watch.Folders = folders
	if c.Watch.SettleDelaySeconds < 0 {
		c.Watch.SettleDelaySeconds = 0
	}
	if c.Watch.QueueCapacity <= 0 {
		c.Watch.QueueCapacity = defaultQueueCapacity
	}
	return nil
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv("FILESORTER_SERVICE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Service.URL = value
	}
	c.Service.URL = strings.TrimRight(strings.TrimSpace(c.Service.URL), "/")
	c.Service.DashboardURL = strings.TrimSpace(c.Service.DashboardURL)
	if value, ok := os.LookupEnv("FILESORTER_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Service.AccessToken = value
	}
	c.Service.AccessToken = strings.TrimSpace(c.Service.AccessToken)
	if c.Service.TimeoutSeconds <= 0 {
		c.Service.TimeoutSeconds = defaultServiceTimeoutSeconds
	}
	if c.Service.RequestsPerMinute < 0 {
		c.Service.RequestsPerMinute = 0
	}
	if c.Service.RulesSyncIntervalSeconds <= 0 {
		c.Service.RulesSyncIntervalSeconds = defaultRulesSyncIntervalSeconds
	}
}

func (c *Config) normalizeClassifier() {
	c.Classifier.Mode = strings.ToLower(strings.TrimSpace(c.Classifier.Mode))
	if c.Classifier.Mode == "" {
		c.Classifier.Mode = ModeAuto
	}
	for i := range c.Classifier.Rules {
		rule := &c.Classifier.Rules[i]
		rule.ID = strings.TrimSpace(rule.ID)
		rule.Name = strings.TrimSpace(rule.Name)
		rule.Type = strings.ToLower(strings.TrimSpace(rule.Type))
		rule.Destination = strings.TrimSpace(rule.Destination)
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("config-%d", i+1)
		}
		if rule.Name == "" {
			rule.Name = rule.Destination
		}
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("FILESORTER_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
}

func (c *Config) normalizeAudit() {
	if c.Audit.FlushIntervalSeconds <= 0 {
		c.Audit.FlushIntervalSeconds = defaultAuditFlushIntervalSeconds
	}
	if c.Audit.FlushBatchSize <= 0 {
		c.Audit.FlushBatchSize = defaultAuditFlushBatchSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
