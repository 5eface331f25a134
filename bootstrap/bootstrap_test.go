package bootstrap

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/confchan/adapters/memory"
	"github.com/artpar/confchan/adapters/sqlite"
	"github.com/artpar/confchan/config"
	"github.com/artpar/confchan/domain/value"
)

func writeDaemonConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confchan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewDaemonMemoryStore(t *testing.T) {
	path := writeDaemonConfig(t, `
store:
  driver: memory
channels:
  - name: panel
    locked:
      - /size
`)
	d, err := NewDaemon(path)
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	defer d.Close()

	if _, ok := d.Store.(*memory.Store); !ok {
		t.Fatalf("store is %T, want *memory.Store", d.Store)
	}

	locked, err := d.Store.IsLocked(context.Background(), "panel", "/size")
	if err != nil || !locked {
		t.Errorf("seeded lock: locked = %v, err = %v", locked, err)
	}
}

func TestNewDaemonSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	path := writeDaemonConfig(t, "store:\n  driver: sqlite\n  dsn: "+dbPath+"\n")

	d, err := NewDaemon(path)
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	defer d.Close()

	store, ok := d.Store.(*sqlite.PropertyStore)
	if !ok {
		t.Fatalf("store is %T, want *sqlite.PropertyStore", d.Store)
	}

	ctx := context.Background()
	if err := store.Set(ctx, "panel", "/size", value.Int32(24)); err != nil {
		t.Fatalf("set through migrated store: %v", err)
	}
}

func TestNewDaemonMissingConfigFallsBack(t *testing.T) {
	t.Setenv("CONFCHAN_STORE_DRIVER", "memory")

	d, err := NewDaemon(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	defer d.Close()

	if _, ok := d.Store.(*memory.Store); !ok {
		t.Errorf("store is %T, want *memory.Store from env fallback", d.Store)
	}
}

func TestDaemonRunReloadsConfigOnFileChange(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	configFor := func(level string) string {
		return fmt.Sprintf("server:\n  port: %d\nstore:\n  driver: memory\nlogging:\n  level: %s\n", port, level)
	}
	path := writeDaemonConfig(t, configFor("info"))

	d, err := NewDaemon(path)
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Rewrite the config file underneath the running daemon and wait
	// for the holder to pick the change up via the file watch.
	deadline := time.After(5 * time.Second)
	for d.Config.Get().Logging.Level != "debug" {
		if err := os.WriteFile(path, []byte(configFor("debug")), 0o644); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		select {
		case <-deadline:
			t.Fatal("running daemon never reloaded the edited config file")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNewClientService(t *testing.T) {
	cfg := &config.Config{}
	cfg.Remote.URL = "http://127.0.0.1:9595"

	svc := NewClientService(cfg, zerolog.Nop())
	if svc == nil {
		t.Fatal("nil service")
	}
	svc.Shutdown()
}
