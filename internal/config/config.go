package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	LogDir       string `toml:"log_dir"`
	CatalogPath  string `toml:"catalog_path"`
}

// Worker contains configuration for the bake worker pool.
type Worker struct {
	// Binary is the headless DCC executable that hosts the bake script.
	Binary string `toml:"binary"`
	// Script is the bake worker entry point handed to the binary.
	Script string `toml:"script"`
	// Limit caps the pool size; the effective count is
	// min(limit, task count).
	Limit            int      `toml:"limit"`
	StopGraceSeconds int      `toml:"stop_grace_seconds"`
	ExtraArgs        []string `toml:"extra_args"`
}

// Bake contains bake output and batch timing configuration.
type Bake struct {
	// Resolution is the square texture size for baked channels.
	Resolution int `toml:"resolution"`
	// ValueResolution is the size used for constant-value channels.
	ValueResolution     int `toml:"value_resolution"`
	BatchTimeoutSeconds int `toml:"batch_timeout_seconds"`
	TickIntervalMS      int `toml:"tick_interval_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Worker  Worker  `toml:"worker"`
	Bake    Bake    `toml:"bake"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "kiln", "config.toml"), nil
}

// Load reads configuration from path, or from the default location when
// path is empty. A missing file at the default location yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(expandUser(path))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults stand
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	path = expandUser(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the workspace and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.LogDir, c.BakeOutputDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// BakeOutputDir is where baked channel textures land.
func (c *Config) BakeOutputDir() string {
	if c.Paths.WorkspaceDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.WorkspaceDir, "baked")
}

// ScratchDir holds conversion scratch files such as recovered in-memory
// height textures; everything under it is a registered temp artifact.
func (c *Config) ScratchDir() string {
	if c.Paths.WorkspaceDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.WorkspaceDir, "scratch")
}

// CatalogDatabasePath resolves the sqlite catalog location.
func (c *Config) CatalogDatabasePath() string {
	if c.Paths.CatalogPath != "" {
		return c.Paths.CatalogPath
	}
	return filepath.Join(c.Paths.WorkspaceDir, "catalog.db")
}

// BatchTimeout returns the coarse whole-batch timeout.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.Bake.BatchTimeoutSeconds) * time.Second
}

// TickInterval returns the control loop tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Bake.TickIntervalMS) * time.Millisecond
}

// StopGrace returns how long teardown waits before force-killing a
// worker process group.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Worker.StopGraceSeconds) * time.Second
}

func (c *Config) normalize() {
	c.Paths.WorkspaceDir = expandUser(strings.TrimSpace(c.Paths.WorkspaceDir))
	c.Paths.LogDir = expandUser(strings.TrimSpace(c.Paths.LogDir))
	c.Paths.CatalogPath = expandUser(strings.TrimSpace(c.Paths.CatalogPath))
	c.Worker.Binary = strings.TrimSpace(c.Worker.Binary)
	c.Worker.Script = expandUser(strings.TrimSpace(c.Worker.Script))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

func expandUser(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
