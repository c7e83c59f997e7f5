package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Editor.Tick.Duration != 100*time.Millisecond {
		t.Errorf("Tick = %v, want 100ms", cfg.Editor.Tick)
	}
	if cfg.Clipboard.Backend != "file" {
		t.Errorf("Backend = %q, want file", cfg.Clipboard.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[editor]
tick = "250ms"
fallback_label = "Skill"
light_mode = true

[server]
addr = "127.0.0.1:9000"

[clipboard]
backend = "sqlite"
ttl = "1h"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Editor.Tick.Duration != 250*time.Millisecond {
		t.Errorf("Tick = %v", cfg.Editor.Tick)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.SessionIdle.Duration != 2*time.Hour {
		t.Errorf("unset keys should keep defaults, SessionIdle = %v", cfg.Server.SessionIdle)
	}

	opts := cfg.SessionOptions()
	if opts.FallbackLabel != "Skill" || !opts.LightMode {
		t.Errorf("SessionOptions = %+v", opts)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[editor"},
		{"bad duration", "[editor]\ntick = \"soon\""},
		{"unknown key", "[editor]\nspeed = 3"},
		{"unknown backend", "[clipboard]\nbackend = \"s3\""},
		{"negative tick", "[editor]\ntick = \"-1s\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data); !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("Parse err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("SKILLTREE_REDIS_ADDR", "redis:6379")
	t.Setenv("SKILLTREE_REDIS_DB", "2")

	// No file at the default location is fine.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Clipboard.RedisAddr != "redis:6379" || cfg.Clipboard.RedisDB != 2 {
		t.Errorf("env overrides not applied: %+v", cfg.Clipboard)
	}

	path := filepath.Join(dir, AppName, "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[server]\naddr = \":7070\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", cfg.Server.Addr)
	}

	t.Setenv("SKILLTREE_ADDR", ":6060")
	cfg, _ = Load(path)
	if cfg.Server.Addr != ":6060" {
		t.Errorf("env should win over file, Addr = %q", cfg.Server.Addr)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}

	t.Setenv("SKILLTREE_REDIS_DB", "two")
	if _, err := Load(""); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("bad SKILLTREE_REDIS_DB err = %v", err)
	}
}

func TestClipboardConfig(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	cc, err := Default().ClipboardConfig()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/custom-cache", AppName, "clipboard"); cc.Dir != want {
		t.Errorf("Dir = %q, want %q", cc.Dir, want)
	}
	if cc.TTL != 7*24*time.Hour {
		t.Errorf("TTL = %v", cc.TTL)
	}
}

func TestConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/custom-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", AppName); dir != want {
		t.Errorf("CacheDir() = %q, want %q", dir, want)
	}
}

func TestExampleConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "examples", "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		t.Fatalf("example config: %v", err)
	}
	if cfg.Server.SessionIdle.Duration != 2*time.Hour {
		t.Errorf("SessionIdle = %v, want 2h", cfg.Server.SessionIdle)
	}
	if cfg.Clipboard.MongoCollection != "clipboard" {
		t.Errorf("MongoCollection = %q", cfg.Clipboard.MongoCollection)
	}
}
