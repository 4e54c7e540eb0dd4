package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		kind    string
		want    Notifier
	}{
		{name: "desktop", enabled: true, kind: "desktop", want: Desktop{}},
		{name: "log", enabled: true, kind: "log", want: Log{}},
		{name: "none", enabled: true, kind: "none", want: Nop{}},
		{name: "unknown falls back to log", enabled: true, kind: "pager", want: Log{}},
		{name: "disabled logs only", enabled: false, kind: "desktop", want: Log{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.enabled, tt.kind); got != tt.want {
				t.Errorf("New(%v, %q) = %T, want %T", tt.enabled, tt.kind, got, tt.want)
			}
		})
	}
}

func TestLogNotifier(t *testing.T) {
	buf := captureLog(t)
	n := Log{}

	n.Notify("Recording paused")
	if !strings.Contains(buf.String(), "Recording paused") || !strings.Contains(buf.String(), `"level":"info"`) {
		t.Errorf("unexpected log output: %s", buf.String())
	}

	buf.Reset()
	n.Error("upload failed")
	if !strings.Contains(buf.String(), "upload failed") || !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}

func TestNopNotifier(t *testing.T) {
	buf := captureLog(t)
	n := Nop{}
	n.Notify("x")
	n.Error("y")
	if buf.Len() != 0 {
		t.Errorf("Nop should not log, got %s", buf.String())
	}
}

func TestMemoryNotifier(t *testing.T) {
	m := &Memory{}
	m.Notify("a")
	m.Error("b")
	m.Error("c")

	if got := m.Infos(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Infos = %v", got)
	}
	if got := m.Errors(); len(got) != 2 || got[1] != "c" {
		t.Errorf("Errors = %v", got)
	}
}

func TestDesktopNotifier(t *testing.T) {
	captureLog(t)
	// Calls notify-send when available; only verify it does not panic.
	Desktop{}.Notify("Test message")
	Desktop{}.Error("Test error")
}

func TestDynamicNotifier(t *testing.T) {
	first, second := &Memory{}, &Memory{}
	d := NewDynamic(first)

	d.Notify("one")
	d.Set(second)
	d.Error("two")

	if got := first.Infos(); len(got) != 1 || got[0] != "one" {
		t.Errorf("first Infos = %v", got)
	}
	if got := second.Errors(); len(got) != 1 || got[0] != "two" {
		t.Errorf("second Errors = %v", got)
	}
	if len(first.Errors()) != 0 || len(second.Infos()) != 0 {
		t.Error("message delivered to the wrong notifier")
	}
}
