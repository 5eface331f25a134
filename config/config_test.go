package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "confchan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9700\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9700 {
		t.Errorf("port = %d, want 9700", cfg.Server.Port)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Remote.URL != "http://127.0.0.1:9700" {
		t.Errorf("remote url = %q", cfg.Remote.URL)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("remote timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics path = %q", cfg.Metrics.Path)
	}
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 8080
  read_timeout: 5s
store:
  driver: memory
remote:
  url: http://config.example:8080
  timeout: 2s
logging:
  level: debug
  format: console
metrics:
  enabled: true
channels:
  - name: displays
    locked:
      - /brightness
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Remote.URL != "http://config.example:8080" || cfg.Remote.Timeout != 2*time.Second {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled")
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0].Name != "displays" {
		t.Errorf("channels = %+v", cfg.Channels)
	}
	if len(cfg.Channels[0].Locked) != 1 || cfg.Channels[0].Locked[0] != "/brightness" {
		t.Errorf("locked = %+v", cfg.Channels[0].Locked)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("CONFCHAN_TEST_DSN", "/var/lib/confchan/state.db")
	path := writeConfig(t, "store:\n  dsn: ${CONFCHAN_TEST_DSN}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.DSN != "/var/lib/confchan/state.db" {
		t.Errorf("dsn = %q", cfg.Store.DSN)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONFCHAN_SERVER_PORT", "7001")
	t.Setenv("CONFCHAN_STORE_DRIVER", "memory")
	t.Setenv("CONFCHAN_LOG_LEVEL", "debug")
	path := writeConfig(t, "server:\n  port: 9700\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want env override 7001", cfg.Server.Port)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("driver = %q, want env override memory", cfg.Store.Driver)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want env override debug", cfg.Logging.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFCHAN_SERVER_HOST", "10.0.0.5")
	t.Setenv("CONFCHAN_REMOTE_URL", "http://10.0.0.5:9595")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Server.Host != "10.0.0.5" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
	if cfg.Remote.URL != "http://10.0.0.5:9595" {
		t.Errorf("remote url = %q", cfg.Remote.URL)
	}
}

func TestLoadWithFallback(t *testing.T) {
	cfg, err := LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback: %v", err)
	}
	if cfg.Server.Port != 9595 {
		t.Errorf("port = %d, want default 9595", cfg.Server.Port)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad driver", "store:\n  driver: postgres\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad port", "server:\n  port: 99999\n"},
		{"unnamed channel", "channels:\n  - locked: [/a]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
