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

// Paths contains directory configuration.
type Paths struct {
	IncomingDir string `toml:"incoming_dir"`
	WorkDir     string `toml:"work_dir"`
	PublicDir   string `toml:"public_dir"`
	LogDir      string `toml:"log_dir"`
}

// Workflow contains daemon timing and concurrency settings. Intervals are in
// seconds.
type Workflow struct {
	ScanInterval       int `toml:"scan_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	MergePollInterval  int `toml:"merge_poll_interval"`
	MergeTimeout       int `toml:"merge_timeout"`
	MaxConcurrent      int `toml:"max_concurrent"`
	// DefaultPlatform is assigned to ingested packages as their platform
	// type. Empty means packages wait for a manual upload.
	DefaultPlatform string `toml:"default_platform"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Points contains settings for points-of-interest extraction and sprite
// sheet generation.
type Points struct {
	MetadataFileName string   `toml:"metadata_file_name"`
	SpriteCellWidth  int      `toml:"sprite_cell_width"`
	SpriteCellHeight int      `toml:"sprite_cell_height"`
	SpriteColumns    int      `toml:"sprite_columns"`
	SpriteMaxRows    int      `toml:"sprite_max_rows"`
	SpriteQuality    int      `toml:"sprite_quality"`
	ImageExtensions  []string `toml:"image_extensions"`
}

// Platform describes one remote video hosting target, keyed by platform type
// in the [platforms] table.
type Platform struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// Config encapsulates all configuration values for packflow.
//
// Configuration sections by subsystem:
//   - Paths: hot folder, per-package working root, public artifact root
//   - Workflow: daemon scan intervals, merge polling and timeout
//   - Logging: log format and level
//   - Points: metadata file name and sprite sheet geometry
//   - Platforms: per-type remote platform settings
type Config struct {
	Paths     Paths               `toml:"paths"`
	Workflow  Workflow            `toml:"workflow"`
	Logging   Logging             `toml:"logging"`
	Points    Points              `toml:"points"`
	Platforms map[string]Platform `toml:"platforms"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/packflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("packflow.toml")
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

func (c *Config) normalize() error {
	paths := []*string{&c.Paths.IncomingDir, &c.Paths.WorkDir, &c.Paths.PublicDir, &c.Paths.LogDir}
	for _, field := range paths {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	if c.Workflow.ScanInterval <= 0 {
		c.Workflow.ScanInterval = defaultScanInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.MergePollInterval <= 0 {
		c.Workflow.MergePollInterval = defaultMergePollInterval
	}
	if c.Workflow.MaxConcurrent <= 0 {
		c.Workflow.MaxConcurrent = defaultMaxConcurrent
	}
	normalized := make([]string, 0, len(c.Points.ImageExtensions))
	for _, ext := range c.Points.ImageExtensions {
		ext = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	if len(normalized) > 0 {
		c.Points.ImageExtensions = normalized
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.IncomingDir, c.Paths.WorkDir, c.Paths.PublicDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for remuxing and
// frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// PlatformNames returns the configured platform types in sorted order.
func (c *Config) PlatformNames() []string {
	names := make([]string, 0, len(c.Platforms))
	for name := range c.Platforms {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
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
