package status

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	Ready      Status = "ready"
	Recording  Status = "recording"
	Paused     Status = "paused"
	Processing Status = "processing"
)

// Label is the human readable text shown for each status.
func (s Status) Label() string {
	switch s {
	case Ready:
		return "transcriber ready"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Processing:
		return "processing"
	default:
		return string(s)
	}
}

// Snapshot is what displays render and what status queries return.
type Snapshot struct {
	Status  Status
	Elapsed time.Duration
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s %s", s.Status.Label(), FormatElapsed(s.Elapsed))
}

// Display renders snapshots. Render is called from the synchronizer's
// goroutine only.
type Display interface {
	Render(Snapshot)
}

// Sink receives status transitions. The recorder and the pipeline depend
// on this instead of the concrete Synchronizer.
type Sink interface {
	SetStatus(Status)
}

type statusEvent struct {
	status Status
	ack    chan struct{}
}

// Synchronizer owns the current status and the elapsed-time ticker. All
// state lives in the run goroutine; callers interact through SetStatus.
type Synchronizer struct {
	display  Display
	interval time.Duration

	events chan statusEvent
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.RWMutex // guards snap, a read-only mirror for queries
	snap Snapshot

	closeOnce sync.Once
}

type Option func(*Synchronizer)

// WithInterval overrides the one-second tick, for tests.
func WithInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.interval = d }
}

func New(display Display, opts ...Option) *Synchronizer {
	if display == nil {
		display = Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		display:  display,
		interval: time.Second,
		events:   make(chan statusEvent),
		cancel:   cancel,
		done:     make(chan struct{}),
		snap:     Snapshot{Status: Ready},
	}
	for _, opt := range opts {
		opt(s)
	}

	display.Render(s.snap)
	go s.run(ctx)
	return s
}

// SetStatus hands a transition to the synchronizer and returns once it has
// been applied. After Close it is a no-op.
func (s *Synchronizer) SetStatus(st Status) {
	ev := statusEvent{status: st, ack: make(chan struct{})}
	select {
	case s.events <- ev:
	case <-s.done:
		return
	}
	select {
	case <-ev.ack:
	case <-s.done:
	}
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close stops the ticker and waits for the run goroutine to exit.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Synchronizer) run(ctx context.Context) {
	defer close(s.done)

	var (
		ticker  *time.Ticker
		tickCh  <-chan time.Time
		current = Ready
		elapsed time.Duration
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tickCh = nil, nil
		}
	}
	defer stopTicker()

	publish := func() {
		snap := Snapshot{Status: current, Elapsed: elapsed}
		s.mu.Lock()
		s.snap = snap
		s.mu.Unlock()
		s.display.Render(snap)
	}

	for {
		select {
		case ev := <-s.events:
			current = ev.status
			switch ev.status {
			case Recording:
				if ticker == nil {
					ticker = time.NewTicker(s.interval)
					tickCh = ticker.C
				}
			case Paused, Processing:
				stopTicker()
			case Ready:
				stopTicker()
				elapsed = 0
			}
			publish()
			close(ev.ack)

		case <-tickCh:
			elapsed += time.Second
			publish()

		case <-ctx.Done():
			return
		}
	}
}

// FormatElapsed renders d as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
