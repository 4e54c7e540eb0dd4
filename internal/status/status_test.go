package status

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const testInterval = 5 * time.Millisecond

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestInitialStatusReady(t *testing.T) {
	mem := &Memory{}
	s := New(mem, WithInterval(testInterval))
	defer s.Close()

	if got := s.Snapshot(); got.Status != Ready || got.Elapsed != 0 {
		t.Errorf("initial snapshot = %+v, want ready 0", got)
	}
	if mem.Last().Status != Ready {
		t.Error("initial state should be rendered")
	}
}

func TestTickerRunsWhileRecording(t *testing.T) {
	s := New(Nop{}, WithInterval(testInterval))
	defer s.Close()

	s.SetStatus(Recording)
	waitFor(t, func() bool { return s.Snapshot().Elapsed >= 3*time.Second })
}

func TestPauseFreezesElapsed(t *testing.T) {
	s := New(Nop{}, WithInterval(testInterval))
	defer s.Close()

	s.SetStatus(Recording)
	waitFor(t, func() bool { return s.Snapshot().Elapsed >= 2*time.Second })

	s.SetStatus(Paused)
	frozen := s.Snapshot()
	if frozen.Status != Paused {
		t.Fatalf("status = %s, want paused", frozen.Status)
	}
	time.Sleep(10 * testInterval)
	if got := s.Snapshot().Elapsed; got != frozen.Elapsed {
		t.Errorf("elapsed moved while paused: %v -> %v", frozen.Elapsed, got)
	}

	s.SetStatus(Recording)
	waitFor(t, func() bool { return s.Snapshot().Elapsed > frozen.Elapsed })
}

func TestProcessingStopsWithoutReset(t *testing.T) {
	s := New(Nop{}, WithInterval(testInterval))
	defer s.Close()

	s.SetStatus(Recording)
	waitFor(t, func() bool { return s.Snapshot().Elapsed >= time.Second })

	s.SetStatus(Processing)
	held := s.Snapshot().Elapsed
	if held == 0 {
		t.Fatal("processing should keep the elapsed value")
	}
	time.Sleep(10 * testInterval)
	if got := s.Snapshot().Elapsed; got != held {
		t.Errorf("elapsed moved while processing: %v -> %v", held, got)
	}

	s.SetStatus(Ready)
	if got := s.Snapshot(); got.Status != Ready || got.Elapsed != 0 {
		t.Errorf("ready should reset elapsed, got %+v", got)
	}
}

func TestCloseStopsTicker(t *testing.T) {
	mem := &Memory{}
	s := New(mem, WithInterval(testInterval))

	s.SetStatus(Recording)
	waitFor(t, func() bool { return s.Snapshot().Elapsed >= time.Second })

	s.Close()
	rendered := len(mem.Snapshots())
	time.Sleep(10 * testInterval)
	if got := len(mem.Snapshots()); got != rendered {
		t.Errorf("display rendered after Close: %d -> %d", rendered, got)
	}

	// Further calls must not block or panic.
	s.SetStatus(Ready)
	s.Close()
}

func TestCloseLeavesNoGoroutine(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		s := New(Nop{}, WithInterval(testInterval))
		s.SetStatus(Recording)
		s.Close()
	}
	waitFor(t, func() bool { return runtime.NumGoroutine() <= before+1 })
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{5 * time.Second, "00:00:05"},
		{61 * time.Second, "00:01:01"},
		{3*time.Hour + 4*time.Minute + 5*time.Second, "03:04:05"},
		{1500 * time.Millisecond, "00:00:01"},
		{-time.Second, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabels(t *testing.T) {
	if Ready.Label() != "transcriber ready" {
		t.Errorf("unexpected ready label %q", Ready.Label())
	}
	snap := Snapshot{Status: Paused, Elapsed: 7 * time.Second}
	if snap.String() != "paused 00:00:07" {
		t.Errorf("unexpected snapshot string %q", snap.String())
	}
}

func TestFileDisplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "status")
	d := NewFile(path)

	d.Render(Snapshot{Status: Recording, Elapsed: 3 * time.Second})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("status file not written: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "recording 00:00:03" {
		t.Errorf("status file = %q", got)
	}
}

func TestTerminalDisplay(t *testing.T) {
	var sb strings.Builder
	d := NewTerminal(&sb)

	d.Render(Snapshot{Status: Processing, Elapsed: 0})

	if !strings.Contains(sb.String(), "processing") || !strings.Contains(sb.String(), "00:00:00") {
		t.Errorf("unexpected terminal output %q", sb.String())
	}
}

func TestMultiDisplay(t *testing.T) {
	a, b := &Memory{}, &Memory{}
	Multi{a, b}.Render(Snapshot{Status: Paused})

	if a.Last().Status != Paused || b.Last().Status != Paused {
		t.Error("multi display should forward to every display")
	}
}
