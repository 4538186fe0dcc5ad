package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const configFileName = "config.json"

// Manager serves the config stored in config.json. The file is created from
// the initial config on first run; afterwards it is the source of truth and
// edits to it are picked up through Reload.
type Manager struct {
	path     string
	root     string
	debounce time.Duration
	logger   *zap.Logger

	mu  sync.RWMutex
	cfg Config
}

type managerOptions struct {
	configPath    string
	initialConfig *Config
	debounce      time.Duration
	logger        *zap.Logger
}

type ManagerOption func(*managerOptions)

func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.configPath = filepath.Join(dir, configFileName)
		}
	}
}

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.configPath = path
		}
	}
}

// WithDebounce sets how long Changes waits for a burst of file events to
// settle before reporting it.
func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInitialConfig is written to config.json when the file does not exist.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.initialConfig = cfg
	}
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.configPath == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		options.configPath = path
	}

	m := &Manager{
		path:     options.configPath,
		root:     filepath.Dir(options.configPath),
		debounce: options.debounce,
		logger:   options.logger,
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := m.read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = *DefaultConfigWithRoot(m.root)
		if options.initialConfig != nil {
			cfg = *options.initialConfig
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := m.write(cfg); err != nil {
			return nil, fmt.Errorf("write initial config: %w", err)
		}
	case err != nil:
		return nil, err
	}

	m.cfg = cfg
	return m, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// Reload rereads config.json and reports whether it differs from the config
// currently served. An unreadable or invalid file leaves the current config
// in place and is returned as the error.
func (m *Manager) Reload() (Config, bool, error) {
	cfg, err := m.read()
	if err != nil {
		return m.Get(), false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg == m.cfg {
		return cfg, false, nil
	}
	m.cfg = cfg
	m.logger.Info("config reloaded", zap.String("path", m.path))
	return cfg, true, nil
}

// Changes watches the config directory and sends one value per settled burst
// of writes to config.json. The channel is closed when ctx is done.
func (m *Manager) Changes(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	// Editors replace the file on save, so the directory is watched.
	if err := watcher.Add(m.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", m.root, err)
	}

	changes := make(chan struct{}, 1)
	go m.watch(ctx, watcher, changes)
	return changes, nil
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer watcher.Close()

	settle := time.NewTimer(m.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(m.path) ||
				!evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			settle.Reset(m.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("config watcher error", zap.Error(err))
		case <-settle.C:
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

// read decodes config.json over the defaults, so keys missing from the file
// keep their default values.
func (m *Manager) read() (Config, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Config{}, err
	}
	cfg := *DefaultConfigWithRoot(m.root)
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", m.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", m.path, err)
	}
	return cfg, nil
}

func (m *Manager) write(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// DefaultConfigPath resolves <user config dir>/GenieGo/config.json, falling
// back to the working directory.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "GenieGo", configFileName), nil
}
