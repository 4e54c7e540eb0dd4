package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FakeProvider hands out FakeDevices. Set Err to make Acquire fail.
type FakeProvider struct {
	mu      sync.Mutex
	Err     error
	devices []*FakeDevice
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (p *FakeProvider) Acquire(ctx context.Context) (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	d := &FakeDevice{chunkCh: make(chan Chunk, 1024)}
	p.devices = append(p.devices, d)
	return d, nil
}

// Devices returns every device acquired so far, oldest first.
func (p *FakeProvider) Devices() []*FakeDevice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*FakeDevice(nil), p.devices...)
}

// Last returns the most recently acquired device, or nil.
func (p *FakeProvider) Last() *FakeDevice {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.devices) == 0 {
		return nil
	}
	return p.devices[len(p.devices)-1]
}

// FakeDevice is driven by the test: Emit pushes audio, Stop confirms the stop
// by closing the chunk channel.
type FakeDevice struct {
	chunkCh chan Chunk

	mu       sync.Mutex
	stopped  bool
	paused   bool
	err      error
	emitted  int
	dropped  int
	released atomic.Int32
	pauses   atomic.Int32
	resumes  atomic.Int32
}

func (d *FakeDevice) Chunks() <-chan Chunk { return d.chunkCh }

// Emit delivers data unless the device is paused or already stopped.
func (d *FakeDevice) Emit(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.paused {
		d.dropped += len(data)
		return
	}
	d.emitted += len(data)
	d.chunkCh <- Chunk{Data: append([]byte(nil), data...), Timestamp: time.Now()}
}

func (d *FakeDevice) Pause() {
	d.pauses.Add(1)
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

func (d *FakeDevice) Resume() {
	d.resumes.Add(1)
	d.mu.Lock()
	d.paused = false
	d.mu.Unlock()
}

func (d *FakeDevice) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.chunkCh)
}

// Fail records err and stops the device, as if the stream broke mid-session.
func (d *FakeDevice) Fail(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
	d.Stop()
}

func (d *FakeDevice) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *FakeDevice) Release() {
	d.released.Add(1)
	d.Stop()
}

// Releases reports how many times Release was called.
func (d *FakeDevice) Releases() int { return int(d.released.Load()) }

func (d *FakeDevice) Pauses() int  { return int(d.pauses.Load()) }
func (d *FakeDevice) Resumes() int { return int(d.resumes.Load()) }

// EmittedBytes reports how many bytes reached the chunk channel.
func (d *FakeDevice) EmittedBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.emitted
}

// DroppedBytes reports how many bytes were discarded while paused.
func (d *FakeDevice) DroppedBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}
