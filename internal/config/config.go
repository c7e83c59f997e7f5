// Package config loads skilltree settings from a TOML file and the
// environment.
//
// Settings are resolved in three layers, later layers winning:
//
//  1. Built-in defaults ([Default])
//  2. The config file, $XDG_CONFIG_HOME/skilltree/config.toml unless a path
//     is given explicitly
//  3. SKILLTREE_* environment variables for addresses and secrets
//
// A missing default config file is not an error; a missing explicit one is.
//
// Example config.toml:
//
//	[editor]
//	tick = "100ms"
//	fallback_label = "New Skill"
//	light_mode = false
//
//	[server]
//	addr = ":8080"
//	session_idle = "2h"
//
//	[clipboard]
//	backend = "redis"
//	ttl = "168h"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/skilltree/pkg/clipboard"
	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/session"
)

// AppName is used for config and cache directory names.
const AppName = "skilltree"

// Duration is a time.Duration that decodes from TOML strings like "100ms".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full settings tree.
type Config struct {
	Editor    Editor    `toml:"editor"`
	Server    Server    `toml:"server"`
	Clipboard Clipboard `toml:"clipboard"`
}

// Editor configures editing sessions.
type Editor struct {
	Tick          Duration `toml:"tick"`
	FallbackLabel string   `toml:"fallback_label"`
	LightMode     bool     `toml:"light_mode"`
	CanvasWidth   float64  `toml:"canvas_width"`
	CanvasHeight  float64  `toml:"canvas_height"`
}

// Server configures the HTTP host.
type Server struct {
	Addr        string   `toml:"addr"`
	SessionIdle Duration `toml:"session_idle"`
	Metrics     bool     `toml:"metrics"`
}

// Clipboard configures token sharing.
type Clipboard struct {
	Backend         string   `toml:"backend"`
	TTL             Duration `toml:"ttl"`
	Dir             string   `toml:"dir"`
	SQLitePath      string   `toml:"sqlite_path"`
	RedisAddr       string   `toml:"redis_addr"`
	RedisPassword   string   `toml:"redis_password"`
	RedisDB         int      `toml:"redis_db"`
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Editor: Editor{
			Tick:         Duration{session.DefaultTick},
			CanvasWidth:  session.DefaultCanvasWidth,
			CanvasHeight: session.DefaultCanvasHeight,
		},
		Server: Server{
			Addr:        ":8080",
			SessionIdle: Duration{2 * time.Hour},
			Metrics:     true,
		},
		Clipboard: Clipboard{
			Backend:   clipboard.BackendFile,
			TTL:       Duration{7 * 24 * time.Hour},
			RedisAddr: "localhost:6379",
			MongoURI:  "mongodb://localhost:27017",
		},
	}
}

// Load resolves settings. An empty path selects the default location.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := ConfigDir()
		if err != nil {
			return cfg, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "load config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errs.New(errs.ErrCodeInvalidInput, "unknown config keys in %s: %v", path, undecoded)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes settings from TOML text on top of the defaults. The
// environment is not consulted.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errs.New(errs.ErrCodeInvalidInput, "unknown config keys: %v", undecoded)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Editor.Tick.Duration < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "editor.tick must not be negative")
	}
	if c.Editor.CanvasWidth < 0 || c.Editor.CanvasHeight < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "canvas size must not be negative")
	}
	switch c.Clipboard.Backend {
	case clipboard.BackendNull, clipboard.BackendMemory, clipboard.BackendFile,
		clipboard.BackendSQLite, clipboard.BackendRedis, clipboard.BackendMongo:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown clipboard backend %q", c.Clipboard.Backend)
	}
	return nil
}

// applyEnv overrides addresses and secrets from SKILLTREE_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SKILLTREE_ADDR":             &c.Server.Addr,
		"SKILLTREE_CLIPBOARD":        &c.Clipboard.Backend,
		"SKILLTREE_CLIPBOARD_DIR":    &c.Clipboard.Dir,
		"SKILLTREE_SQLITE_PATH":      &c.Clipboard.SQLitePath,
		"SKILLTREE_REDIS_ADDR":       &c.Clipboard.RedisAddr,
		"SKILLTREE_REDIS_PASSWORD":   &c.Clipboard.RedisPassword,
		"SKILLTREE_MONGO_URI":        &c.Clipboard.MongoURI,
		"SKILLTREE_MONGO_DATABASE":   &c.Clipboard.MongoDatabase,
		"SKILLTREE_MONGO_COLLECTION": &c.Clipboard.MongoCollection,
		"SKILLTREE_FALLBACK_LABEL":   &c.Editor.FallbackLabel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("SKILLTREE_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "SKILLTREE_REDIS_DB")
		}
		c.Clipboard.RedisDB = n
	}
	return nil
}

// SessionOptions converts editor settings for session.New.
func (c Config) SessionOptions() session.Options {
	return session.Options{
		CanvasWidth:   c.Editor.CanvasWidth,
		CanvasHeight:  c.Editor.CanvasHeight,
		FallbackLabel: c.Editor.FallbackLabel,
		LightMode:     c.Editor.LightMode,
	}
}

// ClipboardConfig converts clipboard settings for clipboard.Open. An empty
// directory falls back to the user cache directory.
func (c Config) ClipboardConfig() (clipboard.Config, error) {
	dir := c.Clipboard.Dir
	if dir == "" {
		cache, err := CacheDir()
		if err != nil {
			return clipboard.Config{}, fmt.Errorf("resolve cache dir: %w", err)
		}
		dir = filepath.Join(cache, "clipboard")
	}
	return clipboard.Config{
		Backend:    c.Clipboard.Backend,
		TTL:        c.Clipboard.TTL.Duration,
		Dir:        dir,
		SQLitePath: c.Clipboard.SQLitePath,
		Redis: clipboard.RedisConfig{
			Addr:     c.Clipboard.RedisAddr,
			Password: c.Clipboard.RedisPassword,
			DB:       c.Clipboard.RedisDB,
		},
		Mongo: clipboard.MongoConfig{
			URI:        c.Clipboard.MongoURI,
			Database:   c.Clipboard.MongoDatabase,
			Collection: c.Clipboard.MongoCollection,
		},
	}, nil
}

// =============================================================================
// Paths
// =============================================================================

// ConfigDir returns the config directory using XDG standard (~/.config/skilltree/).
func ConfigDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/skilltree/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
