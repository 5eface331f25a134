package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder holds the current configuration and supports hot reload.
// Reads are lock-free for callers holding the returned pointer; the
// pointer itself is swapped atomically under the mutex.
type Holder struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHolder creates a configuration holder from the given file path.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Holder{
		cfg:    cfg,
		path:   path,
		logger: logger.With().Str("component", "config").Logger(),
		stop:   make(chan struct{}),
	}, nil
}

// NewStaticHolder wraps an already-built configuration without file
// watching. Reload and WatchFile are no-ops.
func NewStaticHolder(cfg *Config) *Holder {
	return &Holder{cfg: cfg, stop: make(chan struct{})}
}

// Get returns the current configuration snapshot.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// OnChange registers a callback invoked after each successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Reload re-reads the configuration file. On failure the previous
// configuration stays in effect and the error is returned.
func (h *Holder) Reload() error {
	if h.path == "" {
		return nil
	}
	cfg, err := Load(h.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	h.cfg = cfg
	callbacks := make([]func(*Config), len(h.onChange))
	copy(callbacks, h.onChange)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	h.logger.Info().Str("path", h.path).Msg("configuration reloaded")
	return nil
}

// WatchFile starts watching the config file for changes. Editors and
// config management tools often replace the file atomically, so the
// containing directory is watched rather than the file itself.
func (h *Holder) WatchFile() error {
	if h.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher
	go h.watchLoop()
	return nil
}

func (h *Holder) watchLoop() {
	base := filepath.Base(h.path)
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := h.Reload(); err != nil {
				h.logger.Warn().Err(err).Msg("config reload failed, keeping previous")
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("config watcher error")
		case <-h.stop:
			return
		}
	}
}

// WatchSignals reloads the configuration on SIGHUP.
func (h *Holder) WatchSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ch:
				if err := h.Reload(); err != nil {
					h.logger.Warn().Err(err).Msg("config reload on SIGHUP failed")
				}
			case <-h.stop:
				signal.Stop(ch)
				return
			}
		}
	}()
}

// Stop halts watching. Safe to call multiple times.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}
