package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	RegisterFlags(fs)
	return fs
}

// isolate points user config lookup and env at empty locations.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"TADA_SERVER", "TADA_TIMEOUT", "TADA_CACHE_DIR", "TADA_THEME", "TADA_LOG_LEVEL", "TADA_LOG_FORMAT", "NO_COLOR"} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg, rest, err := Load(newFlagSet(), []string{"ls"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server != DefaultServer || cfg.Timeout != DefaultTimeout || cfg.CacheKey != DefaultCacheKey {
		t.Errorf("defaults: %+v", cfg)
	}
	if len(rest) != 1 || rest[0] != "ls" {
		t.Errorf("rest: %v", rest)
	}
}

func TestTOMLFile(t *testing.T) {
	isolate(t)
	p := filepath.Join(t.TempDir(), "todo.toml")
	data := "server = \"http://todo.example:8080\"\ntimeout = \"3s\"\ntheme = \"neon\"\ngroup = true\n"
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load(newFlagSet(), []string{"--config", p, "ls"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server != "http://todo.example:8080" || cfg.Timeout != 3*time.Second || cfg.Theme != "neon" || !cfg.Group {
		t.Errorf("toml: %+v", cfg)
	}
	if cfg.ConfigFile != p {
		t.Errorf("ConfigFile: %q", cfg.ConfigFile)
	}
}

func TestYAMLUserFile(t *testing.T) {
	isolate(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	if err := os.MkdirAll(filepath.Join(dir, appDir), 0o755); err != nil {
		t.Fatal(err)
	}
	data := "server: http://yaml.example\ntimeout: 2s\nlog_level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, appDir, "config.yaml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server != "http://yaml.example" || cfg.Timeout != 2*time.Second || cfg.LogLevel != "debug" {
		t.Errorf("yaml: %+v", cfg)
	}
}

func TestEnvThenFlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("TADA_SERVER", "http://env.example")
	t.Setenv("TADA_THEME", "mono")
	t.Setenv("TADA_TIMEOUT", "7s")

	cfg, rest, err := Load(newFlagSet(), []string{"--server", "http://flag.example", "add", "--not-a-root-flag"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server != "http://flag.example" {
		t.Errorf("flag should win: %q", cfg.Server)
	}
	if cfg.Theme != "mono" || cfg.Timeout != 7*time.Second {
		t.Errorf("env not applied: %+v", cfg)
	}
	if len(rest) != 2 || rest[1] != "--not-a-root-flag" {
		t.Errorf("subcommand args should pass through: %v", rest)
	}
}

func TestBadEnvTimeout(t *testing.T) {
	isolate(t)
	t.Setenv("TADA_TIMEOUT", "soon")
	if _, _, err := Load(newFlagSet(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnsupportedExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "todo.ini")
	if err := os.WriteFile(p, []byte("x=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(Default(), p); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server = " "
	if err := cfg.Validate(); err == nil {
		t.Error("empty server accepted")
	}
	cfg = Default()
	cfg.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative timeout accepted")
	}
}
