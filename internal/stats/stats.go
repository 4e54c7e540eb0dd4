// Package stats keeps the usage counters and persists them as a JSON snapshot.
package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Record is the persisted snapshot. Field names match the on-disk keys.
type Record struct {
	TimesRecorded      int     `json:"timesRecorded"`
	SecondsRecorded    float64 `json:"secondsRecorded"`
	FilesTranscribed   int     `json:"filesTranscribed"`
	SecondsTranscribed float64 `json:"secondsTranscribed"`
	WordsReceived      int     `json:"wordsReceived"`
}

// Tracker accumulates counters in memory and writes the whole record to
// path after every mutation. Each read-modify-persist sequence holds mu.
type Tracker struct {
	mu     sync.Mutex
	path   string
	record Record
}

func NewTracker(path string) *Tracker {
	return &Tracker{path: path}
}

// DefaultPath returns ~/.local/share/voxscribe/stats.json.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "voxscribe", "stats.json"), nil
}

func (t *Tracker) Path() string { return t.path }

func (t *Tracker) Snapshot() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.record
}

// AddRecording counts one finished recording of the given length.
func (t *Tracker) AddRecording(seconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.record.TimesRecorded++
	t.record.SecondsRecorded += nonNegative(seconds)
	return t.saveLocked()
}

// AddTranscription counts one successful transcription. seconds is 0 when
// the audio length is unknown.
func (t *Tracker) AddTranscription(text string, seconds float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.record.FilesTranscribed++
	t.record.WordsReceived += CountWords(text)
	t.record.SecondsTranscribed += nonNegative(seconds)
	return t.saveLocked()
}

// Reset zeroes every counter and persists the empty record.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.record = Record{}
	return t.saveLocked()
}

func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

// Load replaces the in-memory record with the persisted one. A missing
// file loads as the zero record.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", t.path).Msg("Stats: no snapshot yet, starting from zero")
		t.record = Record{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats %s: %w", t.path, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to parse stats %s: %w", t.path, err)
	}
	t.record = record
	return nil
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace stats: %w", err)
	}
	return nil
}

// CountWords counts space-separated fields, the way words are tallied for
// the wordsReceived counter.
func CountWords(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Split(text, " "))
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
