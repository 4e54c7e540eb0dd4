package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Chunk is one buffer of raw s16le PCM read from the microphone.
type Chunk struct {
	Data      []byte
	Timestamp time.Time
}

type Config struct {
	SampleRate        int
	Channels          int
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		BufferSize:        8192,
		Device:            "",
		ChannelBufferSize: 30,
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.Channels <= 0 || c.Channels > 2 {
		return fmt.Errorf("invalid Channels: %d (must be 1 or 2)", c.Channels)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid BufferSize: %d", c.BufferSize)
	}
	if c.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", c.ChannelBufferSize)
	}
	return nil
}

// Provider hands out capture devices. Each successful Acquire opens a
// microphone stream that the caller owns until it calls Release.
type Provider interface {
	Acquire(ctx context.Context) (Device, error)
}

// Device is an open microphone stream.
//
// Chunks delivers captured audio in order and is closed once the device has
// stopped and every pending chunk was delivered; the close is the stop
// confirmation. Release must be safe to call more than once.
type Device interface {
	Chunks() <-chan Chunk
	Pause()
	Resume()
	Stop()
	Err() error
	Release()
}

var (
	ErrPermission  = errors.New("microphone access denied")
	ErrUnavailable = errors.New("capture device unavailable")
)

// DeviceError reports a failure to acquire or operate the capture device.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e == nil || e.Err == nil {
		return "capture device error"
	}
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
