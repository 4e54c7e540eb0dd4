package status

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
)

var colors = map[Status]lipgloss.Color{
	Ready:      lipgloss.Color("2"),   // green
	Recording:  lipgloss.Color("3"),   // yellow
	Paused:     lipgloss.Color("208"), // orange
	Processing: lipgloss.Color("1"),   // red
}

// Terminal redraws a single coloured status line on w.
type Terminal struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

func NewTerminal(w io.Writer) *Terminal {
	profile := termenv.EnvColorProfile()
	if f, ok := w.(*os.File); ok {
		profile = termenv.NewOutput(f).EnvColorProfile()
	}
	return &Terminal{
		w:        w,
		renderer: lipgloss.NewRenderer(w, termenv.WithProfile(profile)),
	}
}

func (t *Terminal) Render(s Snapshot) {
	style := t.renderer.NewStyle().Foreground(colors[s.Status]).Bold(true)
	fmt.Fprintf(t.w, "\r\x1b[K%s %s", style.Render(s.Status.Label()), FormatElapsed(s.Elapsed))
}

// File mirrors the plain status line into a file so status bars can poll it.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Render(s Snapshot) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		log.Warn().Err(err).Msg("Status: failed to create status directory")
		return
	}
	line := fmt.Sprintf("%s %s\n", s.Status, FormatElapsed(s.Elapsed))
	if err := os.WriteFile(f.path, []byte(line), 0o600); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("Status: failed to write status file")
	}
}

// Multi fans a snapshot out to several displays.
type Multi []Display

func (m Multi) Render(s Snapshot) {
	for _, d := range m {
		d.Render(s)
	}
}

// Nop discards every snapshot.
type Nop struct{}

func (Nop) Render(Snapshot) {}

// Memory keeps every rendered snapshot. Useful in tests.
type Memory struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (m *Memory) Render(s Snapshot) {
	m.mu.Lock()
	m.snaps = append(m.snaps, s)
	m.mu.Unlock()
}

func (m *Memory) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.snaps...)
}

func (m *Memory) Last() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return Snapshot{}
	}
	return m.snaps[len(m.snaps)-1]
}
