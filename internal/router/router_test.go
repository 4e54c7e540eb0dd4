package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/voxscribe/internal/notify"
)

type fakeBackend struct {
	name        string
	unavailable error
	insertErr   error
	inserted    []string
}

func (f *fakeBackend) Name() string     { return f.name }
func (f *fakeBackend) Done() string     { return f.name + " done" }
func (f *fakeBackend) Available() error { return f.unavailable }

func (f *fakeBackend) Insert(ctx context.Context, text string, timeout time.Duration) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, text)
	return nil
}

var fixedNow = func() time.Time { return time.UnixMilli(1700000000123) }

func readTranscript(t *testing.T, dir string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "transcript-1700000000123.md"))
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	return string(data), true
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name         string
		mode         string
		backendErr   error
		unavailable  error
		wantInserted bool
		wantFile     bool
		wantErr      bool
	}{
		{name: "auto inserts", mode: ModeAuto, wantInserted: true},
		{name: "auto falls back to file", mode: ModeAuto, backendErr: errors.New("no display"), wantFile: true},
		{name: "auto unavailable backend", mode: ModeAuto, unavailable: errors.New("missing"), wantFile: true},
		{name: "insert only", mode: ModeInsert, wantInserted: true},
		{name: "insert failure", mode: ModeInsert, backendErr: errors.New("no display"), wantErr: true},
		{name: "file only", mode: ModeFile, wantFile: true},
		{name: "unknown mode", mode: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "notes")
			backend := &fakeBackend{name: "clipboard", insertErr: tt.backendErr, unavailable: tt.unavailable}
			notifier := &notify.Memory{}
			r := New(Config{Mode: tt.mode, Backends: []string{"clipboard"}, TranscriptDir: dir}, notifier,
				WithBackends(backend), WithClock(fixedNow))

			err := r.Route(context.Background(), "hello world", "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Route() error = %v, wantErr %v", err, tt.wantErr)
			}

			if got := len(backend.inserted) == 1; got != tt.wantInserted {
				t.Errorf("inserted = %v, want %v", backend.inserted, tt.wantInserted)
			}
			content, ok := readTranscript(t, dir)
			if ok != tt.wantFile {
				t.Errorf("transcript file exists = %v, want %v", ok, tt.wantFile)
			}
			if ok && content != "hello world" {
				t.Errorf("transcript = %q", content)
			}
		})
	}
}

func TestRouteBackendOrder(t *testing.T) {
	first := &fakeBackend{name: "ydotool", unavailable: errors.New("not installed")}
	second := &fakeBackend{name: "wtype", insertErr: errors.New("compositor refused")}
	third := &fakeBackend{name: "clipboard"}
	notifier := &notify.Memory{}

	r := New(Config{Mode: ModeInsert, Backends: []string{"ydotool", "wtype", "clipboard"}}, notifier,
		WithBackends(first, second, third))

	if err := r.Route(context.Background(), "text", ""); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(third.inserted) != 1 {
		t.Error("clipboard backend not used")
	}
	if infos := notifier.Infos(); len(infos) != 1 || infos[0] != "clipboard done" {
		t.Errorf("infos = %v", infos)
	}
}

func TestRouteUnknownBackend(t *testing.T) {
	r := New(Config{Mode: ModeInsert, Backends: []string{"telepathy"}}, nil, WithBackends())
	err := r.Route(context.Background(), "text", "")
	if err == nil || !strings.Contains(err.Error(), "telepathy") {
		t.Errorf("Route() error = %v, want unknown backend", err)
	}
}

func TestRouteEmbedsAudioLink(t *testing.T) {
	tests := []struct {
		name     string
		embed    bool
		filename string
		want     string
	}{
		{"embed", true, "recording-1.flac", "![[recording-1.flac]]\nthe text"},
		{"embed without file", true, "", "the text"},
		{"no embed", false, "recording-1.flac", "the text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{name: "clipboard"}
			r := New(Config{Mode: ModeInsert, Backends: []string{"clipboard"}, EmbedAudio: tt.embed}, nil,
				WithBackends(backend))

			if err := r.Route(context.Background(), "the text", tt.filename); err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if len(backend.inserted) != 1 || backend.inserted[0] != tt.want {
				t.Errorf("inserted = %q, want %q", backend.inserted, tt.want)
			}
		})
	}
}

func TestRouteEmptyText(t *testing.T) {
	backend := &fakeBackend{name: "clipboard"}
	r := New(DefaultConfig(), nil, WithBackends(backend))
	if err := r.Route(context.Background(), "", "x.flac"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Route() error = %v, want ErrEmptyText", err)
	}
	if len(backend.inserted) != 0 {
		t.Error("empty text inserted")
	}
}

func TestSetConfig(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{name: "clipboard"}
	r := New(DefaultConfig(), nil, WithBackends(backend), WithClock(fixedNow))

	cfg := DefaultConfig()
	cfg.Mode = ModeFile
	cfg.TranscriptDir = dir
	r.SetConfig(cfg)

	if err := r.Route(context.Background(), "filed", ""); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if content, ok := readTranscript(t, dir); !ok || content != "filed" {
		t.Errorf("transcript = %q, %v", content, ok)
	}
	if len(backend.inserted) != 0 {
		t.Error("backend used in file mode")
	}
}

func TestClipboardBackend(t *testing.T) {
	var written string
	b := &clipboardBackend{
		write:       func(s string) error { written = s; return nil },
		unsupported: func() bool { return false },
	}
	if err := b.Available(); err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if err := b.Insert(context.Background(), "copied", time.Second); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if written != "copied" {
		t.Errorf("clipboard = %q", written)
	}

	b.unsupported = func() bool { return true }
	if err := b.Available(); err == nil {
		t.Error("Available() should fail without a clipboard utility")
	}

	b.write = func(string) error { return errors.New("exit status 1") }
	if err := b.Insert(context.Background(), "x", time.Second); err == nil {
		t.Error("Insert() should surface write errors")
	}
}

func TestYdotoolSocketFromEnv(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ydotool.sock")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YDOTOOL_SOCKET", sock)
	if got := ydotoolSocket(); got != sock {
		t.Errorf("ydotoolSocket() = %q, want %q", got, sock)
	}
}
