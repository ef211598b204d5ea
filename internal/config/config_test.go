package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
workspace_dir = "/srv/kiln"

[worker]
binary = "/opt/blender/blender"
script = "/opt/kiln/bake_worker.py"
limit = 8

[bake]
resolution = 4096
tick_interval_ms = 100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.WorkspaceDir != "/srv/kiln" {
		t.Fatalf("workspace = %q", cfg.Paths.WorkspaceDir)
	}
	if cfg.Worker.Limit != 8 || cfg.Bake.Resolution != 4096 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.Bake.ValueResolution != 4 || cfg.Worker.StopGraceSeconds != 5 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing explicit config accepted")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"resolution not power of two": `
[paths]
workspace_dir = "/srv/kiln"
[bake]
resolution = 1000
`,
		"worker limit zero": `
[paths]
workspace_dir = "/srv/kiln"
[worker]
limit = 0
`,
		"bad log format": `
[paths]
workspace_dir = "/srv/kiln"
[logging]
format = "xml"
`,
		"blank workspace": `
[paths]
workspace_dir = "  "
`,
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: invalid config accepted", name)
		}
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.WorkspaceDir = "/srv/kiln"

	if got := cfg.BakeOutputDir(); got != filepath.Join("/srv/kiln", "baked") {
		t.Fatalf("bake output dir = %q", got)
	}
	if got := cfg.ScratchDir(); got != filepath.Join("/srv/kiln", "scratch") {
		t.Fatalf("scratch dir = %q", got)
	}
	if got := cfg.CatalogDatabasePath(); got != filepath.Join("/srv/kiln", "catalog.db") {
		t.Fatalf("catalog path = %q", got)
	}
	cfg.Paths.CatalogPath = "/var/db/kiln.db"
	if got := cfg.CatalogDatabasePath(); got != "/var/db/kiln.db" {
		t.Fatalf("explicit catalog path = %q", got)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	cfg.Bake.BatchTimeoutSeconds = 90
	cfg.Bake.TickIntervalMS = 250
	cfg.Worker.StopGraceSeconds = 3

	if cfg.BatchTimeout() != 90*time.Second {
		t.Fatalf("timeout = %s", cfg.BatchTimeout())
	}
	if cfg.TickInterval() != 250*time.Millisecond {
		t.Fatalf("tick = %s", cfg.TickInterval())
	}
	if cfg.StopGrace() != 3*time.Second {
		t.Fatalf("grace = %s", cfg.StopGrace())
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.WorkspaceDir = filepath.Join(base, "ws")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkspaceDir, cfg.Paths.LogDir, cfg.BakeOutputDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[worker]") {
		t.Fatal("sample config missing worker section")
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("existing config overwritten")
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("embedded sample does not load: %v", err)
	}
}
