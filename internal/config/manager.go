package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeFunc is called after a successful reload with the previous and the
// new configuration.
type ChangeFunc func(old, updated *Config)

type Manager struct {
	path string

	mu          sync.RWMutex
	config      *Config
	subscribers []ChangeFunc

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewManager(path string) (*Manager, error) {
	config, err := Load(path)
	if err != nil {
		log.Error().Err(err).Msg("Config manager: failed to load initial configuration")
		return nil, err
	}
	if err := config.Validate(); err != nil {
		log.Warn().Err(err).Msg("Config manager: validation warning")
	}

	return &Manager{path: path, config: config}, nil
}

func (m *Manager) Path() string { return m.path }

// GetConfig returns a copy of the current configuration.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	configCopy.Output.Backends = append([]string(nil), m.config.Output.Backends...)
	return &configCopy
}

// OnChange registers fn for future reloads.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Info().Str("path", m.path).Msg("Config manager: watching for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.Debug().Str("file", event.Name).Msg("Config manager: change detected, reloading")
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config manager: watcher error")

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. An unreadable or invalid file keeps the current
// configuration. Subscribers run on the caller's goroutine.
func (m *Manager) Reload() bool {
	updated, err := Load(m.path)
	if err != nil {
		log.Error().Err(err).Msg("Config manager: failed to reload config")
		return false
	}
	if err := updated.Validate(); err != nil {
		log.Error().Err(err).Msg("Config manager: invalid config after reload")
		return false
	}

	m.mu.Lock()
	old := m.config
	m.config = updated
	subscribers := append([]ChangeFunc(nil), m.subscribers...)
	m.mu.Unlock()

	log.Info().Msg("Config manager: configuration reloaded")
	for _, fn := range subscribers {
		fn(old, updated)
	}
	return true
}
