// Package audio adapts malgo capture/playback device callbacks to the
// pipeline's ring-buffer stage contract. Device enumeration and
// selection are an external collaborator's job (UI, CLI flags); this
// package only opens a stream against a device handle it's handed.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/p2p-voice/voicepipe/internal/frame"
	"github.com/p2p-voice/voicepipe/internal/ring"
)

// Capture drives a microphone device and pushes downmixed mono samples
// into a ring buffer. The device callback runs on the audio
// subsystem's own thread: it never blocks and never allocates beyond
// the pooled conversion buffer below.
type Capture struct {
	device     *malgo.Device
	out        *ring.Producer
	sampleRate uint32

	downmixScratch []float32
}

// NewCapture opens the given input device and wires its callback to
// push mono samples into out. Capture.Channels and SampleRate are left
// at their zero value in the device config so miniaudio opens the
// device's native format rather than forcing a conversion upstream of
// this package's own downmix; the callback derives the channel count
// from the buffer it's handed on every call.
func NewCapture(ctx *Context, dev Device, out *ring.Producer) (*Capture, error) {
	c := &Capture{out: out}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	if dev.id != nil {
		deviceConfig.Capture.DeviceID = dev.id
	}

	callbacks := malgo.DeviceCallbacks{
		Data: c.onData,
	}

	device, err := malgo.InitDevice(ctx.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init capture device %q: %w", dev.Name, err)
	}
	c.device = device
	c.sampleRate = device.SampleRate()

	return c, nil
}

// SampleRate returns the device's native capture rate.
func (c *Capture) SampleRate() uint32 { return c.sampleRate }

// Start begins delivering callbacks.
func (c *Capture) Start() error {
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("start capture device: %w", err)
	}
	return nil
}

// Stop halts the device stream and releases it. Idempotent.
func (c *Capture) Stop() {
	if c.device == nil {
		return
	}
	c.device.Stop()
	c.device.Uninit()
	c.device = nil
}

// onData is the audio-subsystem callback. The channel count is
// recovered from the buffer size rather than a config getter, since
// the device was opened with native (zero-value) channels.
func (c *Capture) onData(_ []byte, pInputSamples []byte, framecount uint32) {
	if framecount == 0 {
		return
	}
	channels := len(pInputSamples) / 4 / int(framecount)
	if channels == 0 {
		return
	}

	interleaved := bytesToFloat32(pInputSamples)
	defer returnFloat32Buffer(interleaved)

	if cap(c.downmixScratch) < int(framecount) {
		c.downmixScratch = make([]float32, framecount)
	}
	mono := c.downmixScratch[:framecount]
	frame.Downmix(channels, interleaved, mono)

	for _, s := range mono {
		c.out.Push(s)
	}
}

// float32Pool reduces allocations in the audio callback hot path.
var float32Pool = sync.Pool{
	New: func() interface{} {
		buf := make([]float32, 2048)
		return &buf
	},
}

// bytesToFloat32 reinterprets a little-endian float32 byte buffer,
// using a pooled backing array. The caller must returnFloat32Buffer
// the result once done with it.
func bytesToFloat32(data []byte) []float32 {
	n := len(data) / 4
	pBuf := float32Pool.Get().(*[]float32)
	if cap(*pBuf) < n {
		*pBuf = make([]float32, n)
	}
	out := (*pBuf)[:n]
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// returnFloat32Buffer returns a buffer obtained from bytesToFloat32
// to the pool.
func returnFloat32Buffer(samples []float32) {
	if samples == nil {
		return
	}
	buf := samples[:cap(samples)]
	float32Pool.Put(&buf)
}
