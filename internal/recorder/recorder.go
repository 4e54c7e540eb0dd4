// Package recorder implements the recording lifecycle: one capture session
// at a time, paused and resumed on demand, finalized into an audio payload
// that is saved, counted and handed to the transcription pipeline.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/voxscribe/internal/capture"
	"github.com/leonardotrapani/voxscribe/internal/encoder"
	"github.com/leonardotrapani/voxscribe/internal/notify"
	"github.com/leonardotrapani/voxscribe/internal/pipeline"
	"github.com/leonardotrapani/voxscribe/internal/status"
)

// ErrBusy is returned by Start while a session is opening, open or finalizing.
var ErrBusy = errors.New("recorder busy")

type State int

const (
	Idle State = iota
	Starting
	Recording
	Paused
	Stopping
	Aborting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopping:
		return "stopping"
	case Aborting:
		return "aborting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transcriber is the part of the pipeline that turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio encoder.Audio, audioFilename string, opts pipeline.Options) (string, error)
}

// Handoff takes ownership of a finished recording. Submit is called before
// the controller returns to Idle and must not wait for the transcription.
type Handoff interface {
	Submit(ctx context.Context, audio encoder.Audio, audioFilename string)
}

// HandoffFunc adapts a function to Handoff.
type HandoffFunc func(ctx context.Context, audio encoder.Audio, audioFilename string)

func (f HandoffFunc) Submit(ctx context.Context, audio encoder.Audio, audioFilename string) {
	f(ctx, audio, audioFilename)
}

// Background is a Handoff that transcribes every recording on its own
// goroutine.
type Background struct {
	Transcriber Transcriber

	wg sync.WaitGroup
}

func (b *Background) Submit(ctx context.Context, audio encoder.Audio, audioFilename string) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if _, err := b.Transcriber.Transcribe(ctx, audio, audioFilename, pipeline.Options{TrackDuration: true}); err != nil {
			log.Debug().Err(err).Str("file", audioFilename).Msg("Recorder: transcription did not complete")
		}
	}()
}

// Wait blocks until every submitted transcription has returned.
func (b *Background) Wait() {
	b.wg.Wait()
}

// StatsRecorder receives finished recordings.
type StatsRecorder interface {
	AddRecording(seconds float64) error
}

type Config struct {
	Encoding  string
	PCM       encoder.PCMFormat
	SaveAudio bool
	SaveDir   string
}

// Deps are the controller's collaborators. A nil Handoff drops finished
// recordings after they are saved and counted.
type Deps struct {
	Provider capture.Provider
	Handoff  Handoff
	Stats    StatsRecorder
	Status   status.Sink
	Notifier notify.Notifier
	Config   Config
	// Now is used for generated file names. Defaults to time.Now.
	Now func() time.Time
}

type session struct {
	device  capture.Device
	config  Config
	chunks  [][]byte
	aborted bool
	done    chan struct{}
}

// Controller owns the capture device for the lifetime of a session. All
// state transitions happen under mu; the session goroutine is the only
// writer of the chunk buffer.
type Controller struct {
	provider capture.Provider
	handoff  Handoff
	status   status.Sink
	notifier notify.Notifier
	now      func() time.Time

	mu      sync.Mutex
	state   State
	config  Config
	stats   StatsRecorder
	session *session
}

func New(deps Deps) *Controller {
	c := &Controller{
		provider: deps.Provider,
		handoff:  deps.Handoff,
		status:   deps.Status,
		notifier: deps.Notifier,
		now:      deps.Now,
		config:   deps.Config,
		stats:    deps.Stats,
	}
	if c.notifier == nil {
		c.notifier = notify.Nop{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetConfig applies to sessions started afterwards.
func (c *Controller) SetConfig(config Config) {
	c.mu.Lock()
	c.config = config
	c.mu.Unlock()
}

// SetStats replaces the statistics sink; nil disables statistics.
func (c *Controller) SetStats(stats StatsRecorder) {
	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
}

// Start opens the capture device and begins a session. ctx scopes the
// session and is passed on to the handoff. The controller is Starting while
// the device is acquired; acquisition failures are notified and leave it
// Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = Starting
	config := c.config
	c.mu.Unlock()

	device, err := c.provider.Acquire(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state = Idle
		log.Error().Err(err).Msg("Recorder: failed to acquire capture device")
		c.notifyAcquireError(err)
		return err
	}

	s := &session{
		device: device,
		config: config,
		done:   make(chan struct{}),
	}
	c.session = s
	c.state = Recording
	c.setStatus(status.Recording)
	log.Info().Msg("Recorder: recording started")

	go c.run(ctx, s)
	return nil
}

// Pause reports whether a recording was paused.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording {
		return false
	}
	c.session.device.Pause()
	c.state = Paused
	c.setStatus(status.Paused)
	log.Debug().Msg("Recorder: paused")
	return true
}

// Resume reports whether a paused recording was resumed.
func (c *Controller) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Paused {
		return false
	}
	c.session.device.Resume()
	c.state = Recording
	c.setStatus(status.Recording)
	log.Debug().Msg("Recorder: resumed")
	return true
}

// Stop asks the device to flush. The status moves to Processing right away;
// the session is finalized once the device confirms.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording && c.state != Paused {
		return false
	}
	c.state = Stopping
	c.setStatus(status.Processing)
	c.session.device.Stop()
	log.Info().Msg("Recorder: stopping")
	return true
}

// Abort stops the device and discards the session: nothing is saved,
// counted or transcribed.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording && c.state != Paused {
		return false
	}
	c.state = Aborting
	c.session.aborted = true
	c.session.device.Stop()
	log.Info().Msg("Recorder: aborting")
	return true
}

// Wait blocks until the current session, if any, has ended. Transcriptions
// the session handed off are not waited for.
func (c *Controller) Wait() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		<-s.done
	}
}

func (c *Controller) run(ctx context.Context, s *session) {
	for chunk := range s.device.Chunks() {
		s.chunks = append(s.chunks, chunk.Data)
	}
	c.finalize(ctx, s)
}

// finalize ends the session. The controller is Idle again as soon as the
// payload has been handed off; the transcription runs outside the session.
func (c *Controller) finalize(ctx context.Context, s *session) {
	s.device.Release()
	defer c.finish(s)

	c.mu.Lock()
	aborted := s.aborted
	if !aborted && c.state != Stopping {
		// The stream ended on its own.
		c.state = Stopping
		c.setStatus(status.Processing)
	}
	stats := c.stats
	c.mu.Unlock()

	if aborted {
		c.setStatus(status.Ready)
		log.Info().Msg("Recorder: recording discarded")
		return
	}

	if err := s.device.Err(); err != nil {
		log.Error().Err(err).Msg("Recorder: capture ended with error")
		c.notifier.Error("Recording interrupted: " + err.Error())
	}

	audio, err := encoder.Assemble(s.chunks, s.config.Encoding, s.config.PCM)
	if err != nil {
		if errors.Is(err, encoder.ErrNoAudio) {
			c.notifier.Notify("No audio captured")
		} else {
			log.Error().Err(err).Msg("Recorder: failed to assemble audio")
			c.notifier.Error("Could not encode recording: " + err.Error())
		}
		c.setStatus(status.Ready)
		return
	}

	filename := fmt.Sprintf("recording-%d.%s", c.now().UnixMilli(), audio.Ext)
	if s.config.SaveAudio {
		c.save(s.config.SaveDir, filename, audio.Data)
	}

	seconds := encoder.Duration(audio)
	log.Info().Float64("seconds", seconds).Int("bytes", len(audio.Data)).Str("file", filename).Msg("Recorder: recording finished")

	if stats != nil {
		if err := stats.AddRecording(seconds); err != nil {
			log.Warn().Err(err).Msg("Recorder: failed to persist statistics")
		}
	}

	if c.handoff == nil {
		c.setStatus(status.Ready)
		return
	}
	c.handoff.Submit(ctx, audio, filename)
}

// save writes the payload to dir/filename, creating dir when missing.
// Failures are notified; the recording is still handed off.
func (c *Controller) save(dir, filename string, data []byte) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Recorder: failed to create save directory")
		c.notifier.Error("Could not create folder " + dir)
		return
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Recorder: failed to save audio")
		c.notifier.Error("Could not save recording: " + err.Error())
		return
	}
	log.Info().Str("path", path).Msg("Recorder: audio saved")
}

func (c *Controller) finish(s *session) {
	c.mu.Lock()
	if c.session == s {
		c.state = Idle
	}
	c.mu.Unlock()
	close(s.done)
}

func (c *Controller) notifyAcquireError(err error) {
	switch {
	case errors.Is(err, capture.ErrPermission):
		c.notifier.Error("Microphone access denied")
	case errors.Is(err, capture.ErrUnavailable):
		c.notifier.Error("No capture device available")
	default:
		c.notifier.Error("Could not start recording: " + err.Error())
	}
}

func (c *Controller) setStatus(s status.Status) {
	if c.status != nil {
		c.status.SetStatus(s)
	}
}
