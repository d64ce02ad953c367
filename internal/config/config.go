// Package config resolves client settings from defaults, config files,
// environment variables and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServer    = "http://localhost:5000"
	DefaultTimeout   = 10 * time.Second
	DefaultCacheKey  = "todoData"
	DefaultTheme     = "classic"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"

	appDir = "tada"
)

// Config holds every tunable of the client.
type Config struct {
	Server    string        `toml:"server" yaml:"server"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout"`
	CacheDir  string        `toml:"cache_dir" yaml:"cache_dir"`
	CacheKey  string        `toml:"cache_key" yaml:"cache_key"`
	Theme     string        `toml:"theme" yaml:"theme"`
	LogLevel  string        `toml:"log_level" yaml:"log_level"`
	LogFormat string        `toml:"log_format" yaml:"log_format"`
	Group     bool          `toml:"group" yaml:"group"`
	NoColor   bool          `toml:"no_color" yaml:"no_color"`

	// ConfigFile is the explicit --config path, if any.
	ConfigFile string `toml:"-" yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	cacheDir := filepath.Join(os.TempDir(), appDir)
	if d, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(d, appDir)
	}
	return &Config{
		Server:    DefaultServer,
		Timeout:   DefaultTimeout,
		CacheDir:  cacheDir,
		CacheKey:  DefaultCacheKey,
		Theme:     DefaultTheme,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// RegisterFlags declares the root flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (.toml or .yaml)")
	fs.String("server", "", "todo API base URL")
	fs.Duration("timeout", 0, "per-request timeout")
	fs.String("cache-dir", "", "directory for the local snapshot and logs")
	fs.String("theme", "", "output theme: classic | neon | mono")
	fs.String("log-level", "", "debug | info | warn | error")
	fs.String("log-format", "", "text | json | logfmt")
	fs.Bool("group", false, "group output by pending/done")
	fs.Bool("no-color", false, "disable colored output")
}

// Load parses args with fs (which must have RegisterFlags applied) and
// returns the resolved config plus the remaining positional arguments.
//
// Priority, lowest first:
//  1. Defaults
//  2. User config file (<user config dir>/tada/config.{toml,yaml,yml})
//  3. --config file
//  4. Environment (TADA_*)
//  5. Flags
func Load(fs *pflag.FlagSet, args []string) (*Config, []string, error) {
	fs.SetInterspersed(false)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()

	if p := findUserConfigFile(); p != "" {
		if err := LoadFile(cfg, p); err != nil {
			return nil, nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}

	if p, _ := fs.GetString("config"); p != "" {
		if err := LoadFile(cfg, p); err != nil {
			return nil, nil, fmt.Errorf("loading config file %s: %w", p, err)
		}
		cfg.ConfigFile = p
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, nil, err
	}

	applyFlags(cfg, fs)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// LoadFile decodes path over cfg. The format follows the file extension.
func LoadFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.DecodeFile(path, cfg)
		return err
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("server url is empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		return fmt.Errorf("cache dir is empty")
	}
	return nil
}

// LogPath is where the TUI writes logs while it owns the terminal.
func (c *Config) LogPath() string {
	return filepath.Join(c.CacheDir, "todo.log")
}

func findUserConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		p := filepath.Join(dir, appDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TADA_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("TADA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("TADA_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("TADA_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TADA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
	return nil
}

// applyFlags copies only flags the user actually set.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "server":
			cfg.Server, _ = fs.GetString(f.Name)
		case "timeout":
			cfg.Timeout, _ = fs.GetDuration(f.Name)
		case "cache-dir":
			cfg.CacheDir, _ = fs.GetString(f.Name)
		case "theme":
			cfg.Theme, _ = fs.GetString(f.Name)
		case "log-level":
			cfg.LogLevel, _ = fs.GetString(f.Name)
		case "log-format":
			cfg.LogFormat, _ = fs.GetString(f.Name)
		case "group":
			cfg.Group, _ = fs.GetBool(f.Name)
		case "no-color":
			cfg.NoColor, _ = fs.GetBool(f.Name)
		}
	})
}
