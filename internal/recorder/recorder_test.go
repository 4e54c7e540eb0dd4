package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/voxscribe/internal/capture"
	"github.com/leonardotrapani/voxscribe/internal/encoder"
	"github.com/leonardotrapani/voxscribe/internal/notify"
	"github.com/leonardotrapani/voxscribe/internal/pipeline"
	"github.com/leonardotrapani/voxscribe/internal/stats"
	"github.com/leonardotrapani/voxscribe/internal/status"
	"github.com/leonardotrapani/voxscribe/internal/transcriber"
)

type transcribeCall struct {
	audio    encoder.Audio
	filename string
	opts     pipeline.Options
}

type fakeTranscriber struct {
	sink  status.Sink
	mu    sync.Mutex
	calls []transcribeCall
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio encoder.Audio, filename string, opts pipeline.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transcribeCall{audio, filename, opts})
	f.mu.Unlock()
	if f.sink != nil {
		f.sink.SetStatus(status.Processing)
		f.sink.SetStatus(status.Ready)
	}
	return "text", nil
}

func (f *fakeTranscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	controller  *Controller
	provider    *capture.FakeProvider
	transcriber *fakeTranscriber
	jobs        *Background
	stats       *stats.Tracker
	syncer      *status.Synchronizer
	notifier    *notify.Memory
}

var fixedNow = time.UnixMilli(1700000000000)

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	syncer := status.New(status.Nop{}, status.WithInterval(time.Hour))
	t.Cleanup(syncer.Close)

	f := &fixture{
		provider:    capture.NewFakeProvider(),
		transcriber: &fakeTranscriber{sink: syncer},
		stats:       stats.NewTracker(filepath.Join(t.TempDir(), "stats.json")),
		syncer:      syncer,
		notifier:    &notify.Memory{},
	}
	f.jobs = &Background{Transcriber: f.transcriber}
	f.controller = New(Deps{
		Provider: f.provider,
		Handoff:  f.jobs,
		Stats:    f.stats,
		Status:   syncer,
		Notifier: f.notifier,
		Config:   cfg,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

// wait returns once the session has ended and its transcription has run.
func (f *fixture) wait() {
	f.controller.Wait()
	f.jobs.Wait()
}

func defaultConfig() Config {
	return Config{
		Encoding: encoder.FormatFLAC,
		PCM:      encoder.PCMFormat{SampleRate: 16000, Channels: 1},
	}
}

func TestStartStopScenario(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	if err := f.controller.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := f.controller.State(); got != Recording {
		t.Fatalf("state = %s, want recording", got)
	}
	if got := f.syncer.Snapshot().Status; got != status.Recording {
		t.Fatalf("status = %s, want recording", got)
	}

	device := f.provider.Last()
	// 5 seconds of 16 kHz mono s16 audio.
	for i := 0; i < 10; i++ {
		device.Emit(make([]byte, 16000))
	}

	if !f.controller.Stop() {
		t.Fatal("Stop() = false")
	}
	f.wait()

	if got := f.controller.State(); got != Idle {
		t.Errorf("state = %s, want idle", got)
	}
	if got := device.Releases(); got != 1 {
		t.Errorf("releases = %d, want 1", got)
	}

	rec := f.stats.Snapshot()
	if rec.TimesRecorded != 1 {
		t.Errorf("timesRecorded = %d, want 1", rec.TimesRecorded)
	}
	if rec.SecondsRecorded < 4.99 || rec.SecondsRecorded > 5.01 {
		t.Errorf("secondsRecorded = %v, want ~5", rec.SecondsRecorded)
	}

	if got := f.transcriber.count(); got != 1 {
		t.Fatalf("pipeline calls = %d, want 1", got)
	}
	call := f.transcriber.calls[0]
	if call.filename != "recording-1700000000000.flac" {
		t.Errorf("filename = %q", call.filename)
	}
	if !call.opts.TrackDuration {
		t.Error("recorded audio should track duration")
	}
	if call.audio.MIMEType != "audio/flac" {
		t.Errorf("mime = %q", call.audio.MIMEType)
	}

	snap := f.syncer.Snapshot()
	if snap.Status != status.Ready || snap.Elapsed != 0 {
		t.Errorf("final snapshot = %+v, want ready 0s", snap)
	}
}

func TestAbortDiscardsSession(t *testing.T) {
	tests := []struct {
		name  string
		pause bool
	}{
		{"from recording", false},
		{"from paused", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.SaveAudio = true
			cfg.SaveDir = filepath.Join(t.TempDir(), "audio")
			f := newFixture(t, cfg)

			if err := f.controller.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			device := f.provider.Last()
			device.Emit(make([]byte, 32000))
			if tt.pause && !f.controller.Pause() {
				t.Fatal("Pause() = false")
			}

			if !f.controller.Abort() {
				t.Fatal("Abort() = false")
			}
			f.wait()

			if got := device.Releases(); got != 1 {
				t.Errorf("releases = %d, want 1", got)
			}
			if got := f.transcriber.count(); got != 0 {
				t.Errorf("pipeline calls = %d, want 0", got)
			}
			if rec := f.stats.Snapshot(); rec != (stats.Record{}) {
				t.Errorf("stats = %+v, want zero", rec)
			}
			if _, err := os.Stat(cfg.SaveDir); !os.IsNotExist(err) {
				t.Errorf("save dir created on abort: %v", err)
			}
			snap := f.syncer.Snapshot()
			if snap.Status != status.Ready || snap.Elapsed != 0 {
				t.Errorf("snapshot = %+v, want ready 0s", snap)
			}
			if got := f.controller.State(); got != Idle {
				t.Errorf("state = %s, want idle", got)
			}
		})
	}
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, defaultConfig())
	if err := f.controller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device := f.provider.Last()

	if f.controller.Resume() {
		t.Error("Resume() while recording should be a no-op")
	}
	if !f.controller.Pause() {
		t.Fatal("Pause() = false")
	}
	if f.controller.Pause() {
		t.Error("second Pause() should be a no-op")
	}
	if got := f.syncer.Snapshot().Status; got != status.Paused {
		t.Errorf("status = %s, want paused", got)
	}

	device.Emit(make([]byte, 1000))
	if !f.controller.Resume() {
		t.Fatal("Resume() = false")
	}
	device.Emit(make([]byte, 3200))

	if device.Pauses() != 1 || device.Resumes() != 1 {
		t.Errorf("pauses/resumes = %d/%d, want 1/1", device.Pauses(), device.Resumes())
	}
	if device.DroppedBytes() != 1000 {
		t.Errorf("dropped = %d, want 1000", device.DroppedBytes())
	}

	f.controller.Stop()
	f.wait()

	if got := f.transcriber.count(); got != 1 {
		t.Fatalf("pipeline calls = %d, want 1", got)
	}
	if got := encoder.Duration(f.transcriber.calls[0].audio); got < 0.09 || got > 0.11 {
		t.Errorf("duration = %v, want ~0.1 (paused audio excluded)", got)
	}
}

func TestOperationsWhileIdleAreNoOps(t *testing.T) {
	f := newFixture(t, defaultConfig())

	if f.controller.Pause() || f.controller.Resume() || f.controller.Stop() || f.controller.Abort() {
		t.Error("operations on an idle controller should report false")
	}
	if got := f.controller.State(); got != Idle {
		t.Errorf("state = %s, want idle", got)
	}
	if got := f.syncer.Snapshot().Status; got != status.Ready {
		t.Errorf("status = %s, want ready", got)
	}
	f.wait()
}

func TestStartWhileBusy(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	if err := f.controller.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.controller.Start(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}
	if got := len(f.provider.Devices()); got != 1 {
		t.Errorf("devices acquired = %d, want 1", got)
	}

	f.controller.Abort()
	f.wait()

	if err := f.controller.Start(ctx); err != nil {
		t.Fatalf("Start() after abort error = %v", err)
	}
	if got := len(f.provider.Devices()); got != 2 {
		t.Errorf("devices acquired = %d, want 2", got)
	}
	f.controller.Abort()
	f.wait()
}

func TestAcquireFailureLeavesIdle(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"permission", &capture.DeviceError{Op: "start", Err: capture.ErrPermission}, "Microphone access denied"},
		{"unavailable", &capture.DeviceError{Op: "start", Err: capture.ErrUnavailable}, "No capture device available"},
		{"other", errors.New("boom"), "Could not start recording: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultConfig())
			f.provider.Err = tt.err

			if err := f.controller.Start(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			if got := f.controller.State(); got != Idle {
				t.Errorf("state = %s, want idle", got)
			}
			if got := f.syncer.Snapshot().Status; got != status.Ready {
				t.Errorf("status = %s, want ready", got)
			}
			errs := f.notifier.Errors()
			if len(errs) != 1 || errs[0] != tt.want {
				t.Errorf("errors = %v, want %q", errs, tt.want)
			}

			f.provider.Err = nil
			if err := f.controller.Start(context.Background()); err != nil {
				t.Fatalf("Start() after failure error = %v", err)
			}
			f.controller.Abort()
			f.wait()
		})
	}
}

func TestEmptyCaptureSkipsPipeline(t *testing.T) {
	f := newFixture(t, defaultConfig())
	if err := f.controller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.controller.Stop()
	f.wait()

	if got := f.transcriber.count(); got != 0 {
		t.Errorf("pipeline calls = %d, want 0", got)
	}
	if rec := f.stats.Snapshot(); rec.TimesRecorded != 0 {
		t.Errorf("timesRecorded = %d, want 0", rec.TimesRecorded)
	}
	if infos := f.notifier.Infos(); len(infos) != 1 || infos[0] != "No audio captured" {
		t.Errorf("infos = %v", infos)
	}
	if got := f.syncer.Snapshot().Status; got != status.Ready {
		t.Errorf("status = %s, want ready", got)
	}
}

func TestDeviceFailureMidSession(t *testing.T) {
	f := newFixture(t, defaultConfig())
	if err := f.controller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device := f.provider.Last()
	device.Emit(make([]byte, 16000))
	device.Fail(errors.New("stream closed"))
	f.wait()

	if got := device.Releases(); got != 1 {
		t.Errorf("releases = %d, want 1", got)
	}
	errs := f.notifier.Errors()
	if len(errs) != 1 || !strings.Contains(errs[0], "stream closed") {
		t.Errorf("errors = %v", errs)
	}
	if got := f.transcriber.count(); got != 1 {
		t.Errorf("pipeline calls = %d, want captured audio to be transcribed", got)
	}
	if got := f.controller.State(); got != Idle {
		t.Errorf("state = %s, want idle", got)
	}
}

func TestSaveAudio(t *testing.T) {
	tests := []struct {
		name     string
		save     bool
		encoding string
		wantFile string
	}{
		{"disabled", false, encoder.FormatFLAC, ""},
		{"flac", true, encoder.FormatFLAC, "recording-1700000000000.flac"},
		{"wav", true, encoder.FormatWAV, "recording-1700000000000.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "nested", "audio")
			cfg := defaultConfig()
			cfg.Encoding = tt.encoding
			cfg.SaveAudio = tt.save
			cfg.SaveDir = dir
			f := newFixture(t, cfg)

			if err := f.controller.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			f.provider.Last().Emit(make([]byte, 3200))
			f.controller.Stop()
			f.wait()

			if tt.wantFile == "" {
				if _, err := os.Stat(dir); !os.IsNotExist(err) {
					t.Errorf("save dir exists with saving disabled: %v", err)
				}
				return
			}
			data, err := os.ReadFile(filepath.Join(dir, tt.wantFile))
			if err != nil {
				t.Fatalf("saved file missing: %v", err)
			}
			if string(data) != string(f.transcriber.calls[0].audio.Data) {
				t.Error("saved file differs from transcribed payload")
			}
		})
	}
}

func TestSaveDirFailureStillTranscribes(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := defaultConfig()
	cfg.SaveAudio = true
	cfg.SaveDir = filepath.Join(blocker, "sub")
	f := newFixture(t, cfg)

	if err := f.controller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.provider.Last().Emit(make([]byte, 3200))
	f.controller.Stop()
	f.wait()

	if len(f.notifier.Errors()) != 1 {
		t.Errorf("errors = %v, want one folder error", f.notifier.Errors())
	}
	if got := f.transcriber.count(); got != 1 {
		t.Errorf("pipeline calls = %d, want 1", got)
	}
}

func TestSetConfigAppliesToNextSession(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	if err := f.controller.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cfg := defaultConfig()
	cfg.Encoding = encoder.FormatWAV
	f.controller.SetConfig(cfg)
	f.provider.Last().Emit(make([]byte, 3200))
	f.controller.Stop()
	f.wait()

	if err := f.controller.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.provider.Last().Emit(make([]byte, 3200))
	f.controller.Stop()
	f.wait()

	if got := f.transcriber.calls[0].audio.Ext; got != "flac" {
		t.Errorf("first session ext = %q, want flac", got)
	}
	if got := f.transcriber.calls[1].audio.Ext; got != "wav" {
		t.Errorf("second session ext = %q, want wav", got)
	}
}

func TestStatsDisabled(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.controller.SetStats(nil)

	if err := f.controller.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.provider.Last().Emit(make([]byte, 3200))
	f.controller.Stop()
	f.wait()

	if rec := f.stats.Snapshot(); rec.TimesRecorded != 0 {
		t.Errorf("timesRecorded = %d, want 0", rec.TimesRecorded)
	}
}

func TestWithRealPipeline(t *testing.T) {
	syncer := status.New(status.Nop{}, status.WithInterval(time.Hour))
	defer syncer.Close()

	tracker := stats.NewTracker(filepath.Join(t.TempDir(), "stats.json"))
	svc := transcriber.NewFakeService("hello from the pipeline")
	notifier := &notify.Memory{}
	p := pipeline.New(pipeline.Deps{Status: syncer, Notifier: notifier, Stats: tracker})
	p.SetService(svc)

	provider := capture.NewFakeProvider()
	jobs := &Background{Transcriber: p}
	c := New(Deps{
		Provider: provider,
		Handoff:  jobs,
		Stats:    tracker,
		Status:   syncer,
		Notifier: notifier,
		Config:   defaultConfig(),
	})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	provider.Last().Emit(make([]byte, 64000))
	c.Stop()
	c.Wait()
	jobs.Wait()

	rec := tracker.Snapshot()
	if rec.TimesRecorded != 1 || rec.FilesTranscribed != 1 || rec.WordsReceived != 4 {
		t.Errorf("stats = %+v", rec)
	}
	if rec.SecondsTranscribed < 1.99 || rec.SecondsTranscribed > 2.01 {
		t.Errorf("secondsTranscribed = %v, want ~2", rec.SecondsTranscribed)
	}
	if len(svc.Deletes()) != 1 {
		t.Errorf("deletes = %d, want 1", len(svc.Deletes()))
	}
	if got := syncer.Snapshot().Status; got != status.Ready {
		t.Errorf("status = %s, want ready", got)
	}
}

type blockingTranscriber struct {
	started chan string
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, audio encoder.Audio, filename string, opts pipeline.Options) (string, error) {
	b.started <- filename
	<-b.release
	return "text", nil
}

func TestIdleWhileTranscriptionRuns(t *testing.T) {
	syncer := status.New(status.Nop{}, status.WithInterval(time.Hour))
	defer syncer.Close()

	blocking := &blockingTranscriber{started: make(chan string, 1), release: make(chan struct{})}
	jobs := &Background{Transcriber: blocking}
	provider := capture.NewFakeProvider()
	c := New(Deps{
		Provider: provider,
		Handoff:  jobs,
		Status:   syncer,
		Config:   defaultConfig(),
		Now:      func() time.Time { return fixedNow },
	})
	defer func() {
		close(blocking.release)
		jobs.Wait()
	}()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	device := provider.Last()
	device.Emit(make([]byte, 3200))
	c.Stop()
	c.Wait()

	select {
	case name := <-blocking.started:
		if name != "recording-1700000000000.flac" {
			t.Errorf("handed off %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transcription was not started")
	}

	if got := c.State(); got != Idle {
		t.Errorf("state after handoff = %s, want idle", got)
	}
	if got := device.Releases(); got != 1 {
		t.Errorf("releases = %d, want 1", got)
	}
	if got := syncer.Snapshot().Status; got != status.Processing {
		t.Errorf("status = %s, want processing until the transcription returns", got)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() during transcription error = %v", err)
	}
	c.Abort()
	c.Wait()
}

func TestNilHandoffReturnsToReady(t *testing.T) {
	syncer := status.New(status.Nop{}, status.WithInterval(time.Hour))
	defer syncer.Close()

	provider := capture.NewFakeProvider()
	c := New(Deps{Provider: provider, Status: syncer, Config: defaultConfig()})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	provider.Last().Emit(make([]byte, 3200))
	c.Stop()
	c.Wait()

	if got := c.State(); got != Idle {
		t.Errorf("state = %s, want idle", got)
	}
	if got := syncer.Snapshot().Status; got != status.Ready {
		t.Errorf("status = %s, want ready", got)
	}
}

type gatedProvider struct {
	*capture.FakeProvider
	entered chan struct{}
	release chan struct{}
}

func (p *gatedProvider) Acquire(ctx context.Context) (capture.Device, error) {
	p.entered <- struct{}{}
	<-p.release
	return p.FakeProvider.Acquire(ctx)
}

func TestStateAvailableDuringAcquire(t *testing.T) {
	provider := &gatedProvider{
		FakeProvider: capture.NewFakeProvider(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	c := New(Deps{Provider: provider, Config: defaultConfig()})

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background()) }()
	<-provider.entered

	queried := make(chan State, 1)
	go func() { queried <- c.State() }()
	select {
	case got := <-queried:
		if got != Starting {
			t.Errorf("state during acquire = %s, want starting", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("State() blocked while the device was being acquired")
	}

	if c.Pause() || c.Stop() || c.Abort() {
		t.Error("operations while starting should report false")
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Start() error = %v, want ErrBusy", err)
	}

	close(provider.release)
	if err := <-started; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := c.State(); got != Recording {
		t.Errorf("state = %s, want recording", got)
	}
	if got := len(provider.Devices()); got != 1 {
		t.Errorf("devices acquired = %d, want 1", got)
	}
	c.Abort()
	c.Wait()
}
