package notify

import (
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

const appName = "Voxscribe"

// Notifier surfaces non-fatal messages to the user.
type Notifier interface {
	Notify(msg string)
	Error(msg string)
}

// New picks a notifier for the configured type ("desktop", "log", "none").
func New(enabled bool, kind string) Notifier {
	if !enabled {
		return Log{}
	}
	switch kind {
	case "desktop":
		return Desktop{}
	case "none":
		return Nop{}
	default:
		return Log{}
	}
}

type Desktop struct{}

func (Desktop) Notify(msg string) {
	cmd := exec.Command("notify-send", "-a", appName, appName, msg)
	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Msg("Failed to send notification")
	}
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", "critical", appName, msg)
	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Msg("Failed to send error notification")
	}
	log.Error().Msg(msg)
}

// Log writes notifications to the application log only.
type Log struct{}

func (Log) Notify(msg string) { log.Info().Str("app", appName).Msg(msg) }
func (Log) Error(msg string)  { log.Error().Str("app", appName).Msg(msg) }

// Nop is a Notifier that does absolutely nothing.
type Nop struct{}

func (Nop) Notify(string) {}
func (Nop) Error(string)  {}

// Memory records every message. Useful in unit tests.
type Memory struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *Memory) Notify(msg string) {
	m.mu.Lock()
	m.infos = append(m.infos, msg)
	m.mu.Unlock()
}

func (m *Memory) Error(msg string) {
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
}

func (m *Memory) Infos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infos...)
}

func (m *Memory) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

// Dynamic forwards to a notifier that can be swapped while in use, so a
// config reload can change the notification type.
type Dynamic struct {
	mu sync.RWMutex
	n  Notifier
}

func NewDynamic(n Notifier) *Dynamic {
	return &Dynamic{n: n}
}

func (d *Dynamic) Set(n Notifier) {
	d.mu.Lock()
	d.n = n
	d.mu.Unlock()
}

func (d *Dynamic) current() Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.n
}

func (d *Dynamic) Notify(msg string) { d.current().Notify(msg) }
func (d *Dynamic) Error(msg string)  { d.current().Error(msg) }
