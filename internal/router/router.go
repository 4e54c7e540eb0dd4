// Package router delivers finished transcripts: inserted into the focused
// application through one of the insertion backends, or written to a new
// transcript file.
package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/voxscribe/internal/notify"
)

const (
	ModeAuto   = "auto"
	ModeInsert = "insert"
	ModeFile   = "file"
)

var ErrEmptyText = errors.New("cannot route empty text")

type Config struct {
	Mode          string
	Backends      []string
	TranscriptDir string
	// EmbedAudio prefixes the transcript with a link to the saved recording.
	EmbedAudio bool
	Timeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:     ModeAuto,
		Backends: []string{"clipboard"},
		Timeout:  3 * time.Second,
	}
}

type Option func(*Router)

// WithBackends replaces the registered insertion backends.
func WithBackends(backends ...Backend) Option {
	return func(r *Router) {
		r.backends = make(map[string]Backend, len(backends))
		for _, b := range backends {
			r.backends[b.Name()] = b
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

type Router struct {
	notifier notify.Notifier
	backends map[string]Backend
	now      func() time.Time

	mu     sync.RWMutex
	config Config
}

func New(config Config, notifier notify.Notifier, opts ...Option) *Router {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	r := &Router{
		notifier: notifier,
		now:      time.Now,
		config:   config,
	}
	WithBackends(NewClipboardBackend(), NewWtypeBackend(), NewYdotoolBackend())(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) SetConfig(config Config) {
	r.mu.Lock()
	r.config = config
	r.mu.Unlock()
}

func (r *Router) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Route delivers text. audioFilename names the saved recording the
// transcript came from and may be empty.
func (r *Router) Route(ctx context.Context, text, audioFilename string) error {
	if text == "" {
		return ErrEmptyText
	}
	cfg := r.Config()

	if cfg.EmbedAudio && audioFilename != "" {
		text = fmt.Sprintf("![[%s]]\n%s", audioFilename, text)
	}

	switch cfg.Mode {
	case ModeFile:
		return r.writeFile(cfg, text)
	case ModeInsert:
		return r.insert(ctx, cfg, text)
	case ModeAuto, "":
		err := r.insert(ctx, cfg, text)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Msg("Router: insertion failed, writing transcript file")
		return r.writeFile(cfg, text)
	default:
		return fmt.Errorf("unsupported output mode: %s", cfg.Mode)
	}
}

// insert tries each configured backend in order and stops at the first
// that succeeds.
func (r *Router) insert(ctx context.Context, cfg Config, text string) error {
	if len(cfg.Backends) == 0 {
		return errors.New("no insertion backends configured")
	}

	var errs []error
	for _, name := range cfg.Backends {
		backend, ok := r.backends[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unknown backend", name))
			continue
		}
		if err := backend.Available(); err != nil {
			log.Debug().Err(err).Str("backend", name).Msg("Router: backend unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := backend.Insert(ctx, text, cfg.Timeout); err != nil {
			log.Debug().Err(err).Str("backend", name).Msg("Router: backend failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		log.Info().Str("backend", name).Int("chars", len(text)).Msg("Router: transcript inserted")
		r.notifier.Notify(backend.Done())
		return nil
	}
	return fmt.Errorf("all insertion backends failed: %w", errors.Join(errs...))
}

func (r *Router) writeFile(cfg Config, text string) error {
	dir := cfg.TranscriptDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("transcript-%d.md", r.now().UnixMilli()))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	log.Info().Str("path", path).Msg("Router: transcript saved")
	r.notifier.Notify("Transcript saved to " + path)
	return nil
}
