/*
Package config holds the server configuration.

SOURCES (later wins):
  1. Default()
  2. An optional TOML file passed to Load
  3. Command-line flags applied by cmd/server

EXAMPLE FILE:
  [server]
  port = 8080
  read_timeout = "15s"
  shutdown_timeout = "30s"

  [database]
  path = "./data/budgets.db"

  [log]
  level = "debug"
  format = "json"

  [cors]
  allowed_origins = ["http://localhost:5173"]
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/warp/budget-engine/logging"
)

// Duration decodes "15s"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	CORS     CORSConfig     `toml:"cors"`
}

type ServerConfig struct {
	Port            int      `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps everything in memory.
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{15 * time.Second},
			IdleTimeout:     Duration{60 * time.Second},
			ShutdownTimeout: Duration{30 * time.Second},
		},
		Database: DatabaseConfig{Path: "budgets.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path returns
// the defaults; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate returns every problem with the configuration at once.
func (c Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	for name, d := range map[string]Duration{
		"read_timeout":     c.Server.ReadTimeout,
		"write_timeout":    c.Server.WriteTimeout,
		"idle_timeout":     c.Server.IdleTimeout,
		"shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if d.Duration <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive", name))
		}
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database path cannot be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be text or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}
