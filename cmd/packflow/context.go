package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"packflow/internal/catalog"
	"packflow/internal/config"
	"packflow/internal/platform"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
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

// withStore opens the catalog store for one command invocation.
func (c *commandContext) withStore(fn func(*config.Config, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// buildRegistry maps every configured platform to a provider. Platforms
// without a URL publish into the local public directory.
func buildRegistry(cfg *config.Config) (*platform.Registry, error) {
	registry := platform.NewRegistry()
	for name, entry := range cfg.Platforms {
		if strings.TrimSpace(entry.URL) == "" {
			registry.Register(platform.NewLocalProvider(name, cfg.Paths.PublicDir, "/media"))
			continue
		}
		provider, err := platform.NewHTTPProvider(name, entry.URL, entry.APIKey)
		if err != nil {
			return nil, err
		}
		registry.Register(provider)
	}
	return registry, nil
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
