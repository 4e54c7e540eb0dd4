package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// stopGrace is how long pw-record gets to flush after SIGINT before it is killed.
const stopGrace = 2 * time.Second

// PipeWire acquires microphone streams by spawning pw-record and reading raw
// PCM from its stdout.
type PipeWire struct {
	mu     sync.Mutex
	config Config
}

func NewPipeWire(config Config) *PipeWire {
	return &PipeWire{config: config}
}

// SetConfig applies to streams acquired afterwards.
func (p *PipeWire) SetConfig(config Config) {
	p.mu.Lock()
	p.config = config
	p.mu.Unlock()
}

func (p *PipeWire) Acquire(ctx context.Context) (Device, error) {
	p.mu.Lock()
	config := p.config
	p.mu.Unlock()

	if err := config.Validate(); err != nil {
		return nil, &DeviceError{Op: "acquire", Err: err}
	}
	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, &DeviceError{Op: "acquire", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	// The stream outlives the request that acquired it; only Stop and
	// Release end it.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	cmd := exec.CommandContext(streamCtx, "pw-record", buildPwRecordArgs(config)...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Op: "acquire", Err: fmt.Errorf("create stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, &DeviceError{Op: "acquire", Err: fmt.Errorf("create stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &DeviceError{Op: "acquire", Err: classifyStartError(err)}
	}

	d := &pipewireDevice{
		cmd:      cmd,
		cancel:   cancel,
		chunkCh:  make(chan Chunk, config.ChannelBufferSize),
		released: make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Debug().Str("line", scanner.Text()).Msg("Capture: pw-record stderr")
		}
	}()

	d.wg.Add(1)
	go d.readLoop(stdout, config.BufferSize)

	log.Info().Int("pid", cmd.Process.Pid).Str("device", config.Device).Msg("Capture: device acquired")
	return d, nil
}

type pipewireDevice struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc

	chunkCh  chan Chunk
	released chan struct{}
	paused   atomic.Bool

	mu  sync.Mutex // guards err
	err error

	wg          sync.WaitGroup
	releaseOnce sync.Once
}

func (d *pipewireDevice) Chunks() <-chan Chunk { return d.chunkCh }

func (d *pipewireDevice) Pause()  { d.paused.Store(true) }
func (d *pipewireDevice) Resume() { d.paused.Store(false) }

// Stop asks pw-record to exit; Chunks closes once its output is drained.
func (d *pipewireDevice) Stop() {
	d.cancel()
}

func (d *pipewireDevice) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *pipewireDevice) Release() {
	d.releaseOnce.Do(func() {
		d.cancel()
		close(d.released)
		d.wg.Wait()
		log.Info().Msg("Capture: device released")
	})
}

func (d *pipewireDevice) readLoop(stdout io.Reader, bufferSize int) {
	defer func() {
		close(d.chunkCh)
		// Reap the child so no zombie pw-record survives the session.
		if err := d.cmd.Wait(); err != nil && !isExpectedExit(err) {
			log.Warn().Err(err).Msg("Capture: pw-record exited abnormally")
		}
		d.wg.Done()
	}()

	buffer := make([]byte, bufferSize)
	for {
		n, readErr := stdout.Read(buffer)
		// pw-record keeps running while paused; audio read in that window is discarded.
		if n > 0 && !d.paused.Load() {
			data := make([]byte, n)
			copy(data, buffer[:n])

			select {
			case d.chunkCh <- Chunk{Data: data, Timestamp: time.Now()}:
			case <-d.released:
				return
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, os.ErrClosed) {
				d.setErr(&DeviceError{Op: "read", Err: readErr})
			}
			return
		}
	}
}

func (d *pipewireDevice) setErr(err error) {
	d.mu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.mu.Unlock()
	log.Error().Err(err).Msg("Capture: device error")
}

func isExpectedExit(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// SIGINT/SIGKILL from Stop or Release.
		return !exitErr.Exited() || exitErr.ExitCode() == 130
	}
	return errors.Is(err, context.Canceled)
}

func classifyStartError(err error) error {
	if errors.Is(err, os.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "permission") {
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}
	return fmt.Errorf("start pw-record: %w", err)
}

func buildPwRecordArgs(c Config) []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(c.SampleRate),
		"--channels", strconv.Itoa(c.Channels),
		"-", // stdout
	}
	if c.Device != "" {
		args = append(args, "--target", c.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
