package testsupport

import (
	"path/filepath"
	"testing"

	"packflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.IncomingDir = filepath.Join(base, "incoming")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.PublicDir = filepath.Join(base, "public")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.DefaultPlatform = "main"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithPlatform registers a named platform target on the test config.
func WithPlatform(name string, platform config.Platform) ConfigOption {
	return func(cfg *config.Config) {
		if cfg.Platforms == nil {
			cfg.Platforms = make(map[string]config.Platform)
		}
		cfg.Platforms[name] = platform
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
