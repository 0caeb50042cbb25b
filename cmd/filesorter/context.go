package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"filesorter/internal/api"
	"filesorter/internal/config"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) apiAddress() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.API.Bind
	}
	return ""
}

func (c *commandContext) apiClient() (*api.Client, error) {
	addr := c.apiAddress()
	if addr == "" {
		return nil, errors.New("daemon control API is disabled (api.bind is empty)")
	}
	token := ""
	if cfg := c.configValue(); cfg != nil {
		token = cfg.API.Token
	}
	return api.NewClient(addr, token), nil
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	return wrapClientError(fn(client), c.apiAddress())
}

func wrapClientError(err error, addr string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrDaemonUnavailable) {
		return fmt.Errorf("connect to daemon: nothing is listening on %s; start it with `filesorter run`", addr)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
