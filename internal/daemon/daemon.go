// Package daemon wires the recorder, pipeline, statistics and status line
// together and serves the control socket.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/voxscribe/internal/bus"
	"github.com/leonardotrapani/voxscribe/internal/capture"
	"github.com/leonardotrapani/voxscribe/internal/config"
	"github.com/leonardotrapani/voxscribe/internal/encoder"
	"github.com/leonardotrapani/voxscribe/internal/notify"
	"github.com/leonardotrapani/voxscribe/internal/pipeline"
	"github.com/leonardotrapani/voxscribe/internal/recorder"
	"github.com/leonardotrapani/voxscribe/internal/router"
	"github.com/leonardotrapani/voxscribe/internal/stats"
	"github.com/leonardotrapani/voxscribe/internal/status"
)

// Options override the collaborators built from the config. Zero values
// select the production implementations.
type Options struct {
	SockPath string
	PidPath  string

	Provider       capture.Provider
	ServiceFactory pipeline.ServiceFactory
	Notifier       notify.Notifier
	Display        status.Display
	Backends       []router.Backend
	// HandleSignals installs SIGINT/SIGTERM handlers in Run.
	HandleSignals bool
	// ShutdownGrace bounds how long shutdown waits for running
	// transcriptions before cancelling them. Defaults to 30s.
	ShutdownGrace time.Duration
}

const (
	defaultShutdownGrace = 30 * time.Second
	// abandonAfter is how long a cancelled transcription gets to return.
	abandonAfter = 5 * time.Second
)

type Daemon struct {
	opts     Options
	config   *config.Manager
	notifier *notify.Dynamic
	status   *status.Synchronizer
	router   *router.Router
	pipeline *pipeline.Pipeline
	recorder *recorder.Controller
	pipewire *capture.PipeWire

	ctx    context.Context
	cancel context.CancelFunc
	// work scopes recordings and transcriptions. It outlives ctx so that
	// shutdown can give running jobs a grace period.
	work     context.Context
	stopWork context.CancelFunc

	mu    sync.Mutex // guards stats
	stats *stats.Tracker

	jobMu   sync.Mutex // guards running and the shutdown check
	running int
	jobs    sync.WaitGroup
}

func New(manager *config.Manager, opts Options) (*Daemon, error) {
	cfg := manager.GetConfig()
	ctx, cancel := context.WithCancel(context.Background())
	work, stopWork := context.WithCancel(context.Background())
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = defaultShutdownGrace
	}

	d := &Daemon{
		opts:     opts,
		config:   manager,
		ctx:      ctx,
		cancel:   cancel,
		work:     work,
		stopWork: stopWork,
	}

	n := opts.Notifier
	if n == nil {
		n = notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type)
	}
	d.notifier = notify.NewDynamic(n)

	display := opts.Display
	if display == nil {
		display = newDisplay(cfg)
	}
	d.status = status.New(display)

	var routerOpts []router.Option
	if opts.Backends != nil {
		routerOpts = append(routerOpts, router.WithBackends(opts.Backends...))
	}
	d.router = router.New(cfg.ToRouterConfig(), d.notifier, routerOpts...)

	d.pipeline = pipeline.New(pipeline.Deps{
		Factory:  opts.ServiceFactory,
		Status:   d.status,
		Notifier: d.notifier,
		Router:   d.router,
		Prompt:   cfg.Prompt(),
	})
	if err := d.pipeline.ReloadCredential(ctx, cfg.ToTranscriberConfig()); err != nil {
		log.Warn().Err(err).Msg("Daemon: no transcription service until the config provides an API key")
	}

	provider := opts.Provider
	if provider == nil {
		d.pipewire = capture.NewPipeWire(cfg.ToCaptureConfig())
		provider = d.pipewire
	}
	d.recorder = recorder.New(recorder.Deps{
		Provider: provider,
		Handoff:  recorder.HandoffFunc(d.submitRecording),
		Status:   d.status,
		Notifier: d.notifier,
		Config:   cfg.ToRecorderConfig(),
	})

	d.setStatsEnabled(cfg)
	manager.OnChange(d.applyConfig)
	return d, nil
}

func newDisplay(cfg *config.Config) status.Display {
	var displays status.Multi
	if cfg.Status.Show {
		displays = append(displays, status.NewTerminal(os.Stderr))
	}
	if cfg.Status.File != "" {
		displays = append(displays, status.NewFile(config.ExpandPath(cfg.Status.File)))
	}
	if len(displays) == 0 {
		return status.Nop{}
	}
	return displays
}

// setStatsEnabled loads the tracker when statistics are on and detaches it
// from the recorder and pipeline when they are off.
func (d *Daemon) setStatsEnabled(cfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !cfg.Statistics.Enabled {
		d.stats = nil
		d.recorder.SetStats(nil)
		d.pipeline.SetStats(nil)
		return
	}

	path, err := cfg.StatsPath()
	if err != nil {
		log.Error().Err(err).Msg("Daemon: cannot resolve statistics path, statistics disabled")
		return
	}
	if d.stats != nil && d.stats.Path() == path {
		return
	}

	tracker := stats.NewTracker(path)
	if err := tracker.Load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Daemon: starting statistics from zero")
	}
	d.stats = tracker
	d.recorder.SetStats(tracker)
	d.pipeline.SetStats(tracker)
}

func (d *Daemon) tracker() *stats.Tracker {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Daemon) applyConfig(old, updated *config.Config) {
	if old.ToTranscriberConfig() != updated.ToTranscriberConfig() {
		if err := d.pipeline.ReloadCredential(d.ctx, updated.ToTranscriberConfig()); err != nil {
			log.Error().Err(err).Msg("Daemon: failed to reload transcription service")
			d.notifier.Error("Transcription service not configured: " + err.Error())
		}
	}
	d.pipeline.SetPrompt(updated.Prompt())
	d.recorder.SetConfig(updated.ToRecorderConfig())
	d.router.SetConfig(updated.ToRouterConfig())
	if d.pipewire != nil {
		d.pipewire.SetConfig(updated.ToCaptureConfig())
	}
	if d.opts.Notifier == nil && old.Notifications != updated.Notifications {
		d.notifier.Set(notify.New(updated.Notifications.Enabled, updated.Notifications.Type))
	}
	if old.Statistics != updated.Statistics {
		d.setStatsEnabled(updated)
	}
	if old.Status != updated.Status {
		log.Info().Msg("Daemon: status display changes apply after restart")
	}
	d.notifier.Notify("Configuration reloaded")
}

// Status returns the current status line snapshot.
func (d *Daemon) Status() status.Snapshot {
	return d.status.Snapshot()
}

func (d *Daemon) RecorderState() recorder.State {
	return d.recorder.State()
}

// Stop asks Run to return.
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) Run() error {
	sockPath, pidPath, err := d.paths()
	if err != nil {
		return err
	}

	pidFile := bus.NewPidFile(pidPath)
	if err := pidFile.CheckExisting(); err != nil {
		return err
	}

	ln, err := bus.Listen(sockPath)
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := pidFile.Create(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer pidFile.Remove()

	if err := d.config.StartWatching(d.ctx); err != nil {
		log.Warn().Err(err).Msg("Daemon: config hot reload disabled")
	}
	defer d.config.Stop()

	if d.opts.HandleSignals {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigCh)

		go func() {
			select {
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("Daemon: shutting down")
				d.cancel()
			case <-d.ctx.Done():
			}
		}()
	}

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Info().Str("socket", sockPath).Msg("Daemon: listening")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.shutdown()
				return nil
			}
			d.shutdown()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) paths() (string, string, error) {
	sockPath, pidPath := d.opts.SockPath, d.opts.PidPath
	var err error
	if sockPath == "" {
		if sockPath, err = bus.SockPath(); err != nil {
			return "", "", err
		}
	}
	if pidPath == "" {
		if pidPath, err = bus.PidPath(); err != nil {
			return "", "", err
		}
	}
	return sockPath, pidPath, nil
}

// shutdown discards an open recording, waits for running transcriptions
// and stops the status ticker.
func (d *Daemon) shutdown() {
	// Requests that passed the shutdown check have registered their job
	// once the lock is released.
	d.jobMu.Lock()
	d.cancel()
	d.jobMu.Unlock()

	if d.recorder.Abort() {
		log.Info().Msg("Daemon: discarded recording in progress")
	}
	d.recorder.Wait()
	d.waitJobs()
	d.stopWork()
	d.status.Close()
	log.Info().Msg("Daemon: stopped")
}

// waitJobs waits for running transcriptions. Once the grace period is over
// they are cancelled, and after abandonAfter they are left behind.
func (d *Daemon) waitJobs() {
	done := make(chan struct{})
	go func() {
		d.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(d.opts.ShutdownGrace):
	}

	log.Warn().Dur("grace", d.opts.ShutdownGrace).Msg("Daemon: cancelling transcriptions still running")
	d.stopWork()
	select {
	case <-done:
	case <-time.After(abandonAfter):
		log.Warn().Msg("Daemon: transcription did not return, exiting anyway")
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	req, err := bus.ReadRequest(bufio.NewReader(c))
	if err != nil {
		log.Debug().Err(err).Msg("Daemon: bad request")
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	fmt.Fprintln(c, d.dispatch(req))
}

func (d *Daemon) dispatch(req bus.Request) string {
	switch req.Cmd {
	case bus.CmdToggle:
		return d.toggle()
	case bus.CmdPause:
		if d.recorder.Pause() {
			return "OK paused"
		}
		if d.recorder.Resume() {
			return "OK resumed"
		}
		return "ERR not_recording"
	case bus.CmdCancel:
		if d.recorder.Abort() {
			return "OK cancelled"
		}
		return "ERR not_recording"
	case bus.CmdStatus:
		snap := d.status.Snapshot()
		return fmt.Sprintf("STATUS status=%s elapsed=%s", snap.Status, status.FormatElapsed(snap.Elapsed))
	case bus.CmdTranscribe:
		return d.transcribeFile(req.Arg)
	case bus.CmdStats:
		t := d.tracker()
		if t == nil {
			return "ERR stats_disabled"
		}
		r := t.Snapshot()
		return fmt.Sprintf("STATS timesRecorded=%d secondsRecorded=%.1f filesTranscribed=%d secondsTranscribed=%.1f wordsReceived=%d",
			r.TimesRecorded, r.SecondsRecorded, r.FilesTranscribed, r.SecondsTranscribed, r.WordsReceived)
	case bus.CmdResetStats:
		t := d.tracker()
		if t == nil {
			return "ERR stats_disabled"
		}
		if err := t.Reset(); err != nil {
			return fmt.Sprintf("ERR reset_failed: %v", err)
		}
		return "OK reset"
	case bus.CmdVersion:
		return "STATUS proto=" + bus.ProtoVer
	case bus.CmdQuit:
		d.cancel()
		return "OK quitting"
	default:
		log.Debug().Str("cmd", string(req.Cmd)).Msg("Daemon: unknown command")
		return fmt.Sprintf("ERR unknown=%q", req.Cmd)
	}
}

// toggle starts a recording when idle and stops it when one is open.
// Recording and transcription never overlap: while a job runs the recorder
// stays closed.
func (d *Daemon) toggle() string {
	d.jobMu.Lock()
	defer d.jobMu.Unlock()

	if d.ctx.Err() != nil {
		return "ERR shutting_down"
	}
	switch d.recorder.State() {
	case recorder.Idle:
		if d.running > 0 {
			return "ERR busy"
		}
		if err := d.recorder.Start(d.work); err != nil {
			if errors.Is(err, recorder.ErrBusy) {
				return "ERR busy"
			}
			return fmt.Sprintf("ERR start_failed: %v", err)
		}
		return "OK recording"
	case recorder.Recording, recorder.Paused:
		if d.recorder.Stop() {
			return "OK stopped"
		}
	}
	return "ERR busy"
}

// transcribeFile sends an existing audio file through the pipeline in the
// background. Its duration is not added to secondsTranscribed.
func (d *Daemon) transcribeFile(path string) string {
	if path == "" {
		return "ERR missing_path"
	}
	name := filepath.Base(path)
	if !encoder.IsSupported(filepath.Ext(name)) {
		return "ERR unsupported_format"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("ERR read_failed: %v", err)
	}
	audio, err := encoder.FromFile(name, data)
	if err != nil {
		return fmt.Sprintf("ERR unsupported_format: %v", err)
	}

	d.jobMu.Lock()
	defer d.jobMu.Unlock()

	if d.ctx.Err() != nil {
		return "ERR shutting_down"
	}
	if d.recorder.State() != recorder.Idle || d.running > 0 {
		return "ERR busy"
	}
	d.startJob(d.work, audio, name, pipeline.Options{})
	return "OK transcribing " + name
}

// submitRecording takes over a finished recording. The recorder calls it
// before returning to Idle, so toggle already sees the job.
func (d *Daemon) submitRecording(ctx context.Context, audio encoder.Audio, name string) {
	d.jobMu.Lock()
	defer d.jobMu.Unlock()
	d.startJob(ctx, audio, name, pipeline.Options{TrackDuration: true})
}

// startJob runs one transcription in the background. Callers hold jobMu.
func (d *Daemon) startJob(ctx context.Context, audio encoder.Audio, name string, opts pipeline.Options) {
	d.running++
	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		defer d.endJob()
		if _, err := d.pipeline.Transcribe(ctx, audio, name, opts); err != nil {
			log.Debug().Err(err).Str("file", name).Msg("Daemon: transcription did not complete")
		}
	}()
}

func (d *Daemon) endJob() {
	d.jobMu.Lock()
	d.running--
	d.jobMu.Unlock()
}
