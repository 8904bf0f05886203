package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validatePoints()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.IncomingDir) == "" {
		return errors.New("paths.incoming_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.PublicDir) == "" {
		return errors.New("paths.public_dir must be set")
	}
	if c.Paths.IncomingDir == c.Paths.WorkDir {
		return errors.New("paths.incoming_dir and paths.work_dir must differ")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MergeTimeout < 0 {
		return errors.New("workflow.merge_timeout must not be negative")
	}
	if c.Workflow.MergePollInterval <= 0 {
		return errors.New("workflow.merge_poll_interval must be positive")
	}
	if c.Workflow.MergeTimeout > 0 && c.Workflow.MergeTimeout < c.Workflow.MergePollInterval {
		return errors.New("workflow.merge_timeout must not be shorter than the poll interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}

func (c *Config) validatePoints() error {
	if strings.TrimSpace(c.Points.MetadataFileName) == "" {
		return errors.New("points.metadata_file_name must be set")
	}
	if c.Points.SpriteCellWidth <= 0 || c.Points.SpriteCellHeight <= 0 {
		return errors.New("points.sprite_cell dimensions must be positive")
	}
	if c.Points.SpriteColumns <= 0 || c.Points.SpriteMaxRows <= 0 {
		return errors.New("points.sprite grid dimensions must be positive")
	}
	if c.Points.SpriteQuality < 1 || c.Points.SpriteQuality > 100 {
		return errors.New("points.sprite_quality must be between 1 and 100")
	}
	return nil
}
