package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatch() error {
	if len(c.Watch.Folders) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("watch.folders must list at least one folder. Edit %s (create with 'filesorter config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateService() error {
	if c.Classifier.Mode == ModeLocal {
		return nil
	}
	if c.Service.URL != "" {
		parsed, err := url.Parse(c.Service.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("service.url %q must be an absolute http(s) URL", c.Service.URL)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("service.url %q must use http or https", c.Service.URL)
		}
	}
	if c.Classifier.Mode == ModeRemote {
		if c.Service.URL == "" {
			return errors.New("service.url must be set when classifier.mode is remote")
		}
		if c.Service.AccessToken == "" {
			return errors.New("service.access_token must be set when classifier.mode is remote (or set FILESORTER_TOKEN)")
		}
	}
	return nil
}

func (c *Config) validateClassifier() error {
	switch c.Classifier.Mode {
	case ModeAuto, ModeRemote, ModeLocal:
	default:
		return fmt.Errorf("classifier.mode %q must be one of auto, remote, local", c.Classifier.Mode)
	}
	seen := make(map[string]struct{}, len(c.Classifier.Rules))
	for _, rule := range c.Classifier.Rules {
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("classifier.rules: duplicate id %q", rule.ID)
		}
		seen[rule.ID] = struct{}{}
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("classifier.rules[%s]: %w", rule.ID, err)
		}
	}
	return nil
}

func validateRule(rule Rule) error {
	if rule.Destination == "" {
		return errors.New("destination must be set")
	}
	if filepath.IsAbs(rule.Destination) {
		return errors.New("destination must be relative to the watched folder")
	}
	if filepath.Clean(rule.Destination) == "." {
		return errors.New("destination must name a folder below the watched folder")
	}
	for _, part := range strings.Split(filepath.ToSlash(rule.Destination), "/") {
		if part == ".." {
			return errors.New("destination must not contain '..'")
		}
	}
	switch rule.Type {
	case "extension":
		if len(rule.Extensions) == 0 {
			return errors.New("extension rule requires extensions")
		}
	case "keyword":
		if len(rule.Keywords) == 0 {
			return errors.New("keyword rule requires keywords")
		}
	case "regex":
		if strings.TrimSpace(rule.Pattern) == "" {
			return errors.New("regex rule requires pattern")
		}
	default:
		return fmt.Errorf("type %q must be one of extension, keyword, regex", rule.Type)
	}
	return nil
}

// RuleWarnings lists rule problems that do not stop the agent. A regex rule
// whose pattern does not compile never matches.
func (c *Config) RuleWarnings() []string {
	var warnings []string
	for _, rule := range c.Classifier.Rules {
		if rule.Type != "regex" || strings.TrimSpace(rule.Pattern) == "" {
			continue
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %s pattern does not compile and will never match: %v", rule.ID, err))
		}
	}
	return warnings
}

func (c *Config) validateAPI() error {
	if c.API.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind %q: %w", c.API.Bind, err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}
