package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateBake(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkspaceDir == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Binary == "" {
		return errors.New("worker.binary must be set")
	}
	if c.Worker.Limit < 1 {
		return errors.New("worker.limit must be at least 1")
	}
	if c.Worker.Limit > 64 {
		return errors.New("worker.limit must not exceed 64")
	}
	if c.Worker.StopGraceSeconds < 0 {
		return errors.New("worker.stop_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateBake() error {
	if !powerOfTwo(c.Bake.Resolution) || c.Bake.Resolution < 4 || c.Bake.Resolution > 16384 {
		return fmt.Errorf("bake.resolution must be a power of two between 4 and 16384, got %d", c.Bake.Resolution)
	}
	if !powerOfTwo(c.Bake.ValueResolution) || c.Bake.ValueResolution < 1 || c.Bake.ValueResolution > c.Bake.Resolution {
		return fmt.Errorf("bake.value_resolution must be a power of two no larger than bake.resolution, got %d", c.Bake.ValueResolution)
	}
	if c.Bake.BatchTimeoutSeconds <= 0 {
		return errors.New("bake.batch_timeout_seconds must be positive")
	}
	if c.Bake.TickIntervalMS <= 0 {
		return errors.New("bake.tick_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func powerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
