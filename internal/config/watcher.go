package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ChangeFunc receives the previous and the reloaded config together with
// their difference. It is only called when d.Changed() is true.
type ChangeFunc func(old, new *Config, d ConfigDiff)

// Watcher polls a config file, and the whitelist file the config names,
// for modifications. Edits that do not change the effective config, such
// as comments or a touched file, are not reported. An edited whitelist is
// reported as [ConfigDiff.RebuildRequired] even though the config itself is
// unchanged, since the grammars embed its entries.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	onChange ChangeFunc

	mu       sync.Mutex
	current  *Config
	files    snapshot
	done     chan struct{}
	stopOnce sync.Once
}

// snapshot is the on-disk state the last accepted config was read from.
type snapshot struct {
	configMtime    time.Time
	whitelistMtime time.Time
	whitelistHash  uint64
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherLogger sets the logger. The default is slog.Default().
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. A nil onChange only keeps [Watcher.Current] up to date.
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		logger:   slog.Default(),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, files, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.files = cfg, files

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads when the config or its whitelist was modified. An invalid
// config or an unreadable whitelist keeps the previous config.
func (w *Watcher) check() {
	w.mu.Lock()
	old, last := w.current, w.files
	w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}
	modified := !info.ModTime().Equal(last.configMtime)
	if old.Whitelist != "" {
		wl, err := os.Stat(old.Whitelist)
		// A vanished whitelist counts as modified so that the reload
		// reports it.
		modified = modified || err != nil || !wl.ModTime().Equal(last.whitelistMtime)
	}
	if !modified {
		return
	}

	cfg, files, err := w.load()
	if err != nil {
		w.logger.Warn("config watcher: failed to load config", "path", w.path, "err", err)
		return
	}

	d := Diff(old, cfg)
	if cfg.Whitelist != "" && cfg.Whitelist == old.Whitelist && files.whitelistHash != last.whitelistHash {
		d.RebuildRequired = true
	}

	w.mu.Lock()
	w.current, w.files = cfg, files
	w.mu.Unlock()

	if !d.Changed() {
		w.logger.Debug("config watcher: file modified without effective change", "path", w.path)
		return
	}
	w.logger.Info("config watcher: configuration reloaded",
		"path", w.path,
		"language", cfg.Language,
		"rebuild", d.RebuildRequired,
		"restart", d.RestartRequired,
	)

	// Outside the lock so the callback can call Current.
	if w.onChange != nil {
		w.onChange(old, cfg, d)
	}
}

func (w *Watcher) load() (*Config, snapshot, error) {
	var s snapshot
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, s, err
	}
	cfg, err := Load(w.path)
	if err != nil {
		return nil, s, err
	}
	s.configMtime = info.ModTime()

	if cfg.Whitelist != "" {
		wl, err := os.Stat(cfg.Whitelist)
		if err != nil {
			return nil, s, fmt.Errorf("config: whitelist: %w", err)
		}
		data, err := os.ReadFile(cfg.Whitelist)
		if err != nil {
			return nil, s, fmt.Errorf("config: whitelist: %w", err)
		}
		s.whitelistMtime, s.whitelistHash = wl.ModTime(), xxhash.Sum64(data)
	}
	return cfg, s, nil
}
