package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gen2brain/malgo"

	"github.com/p2p-voice/voicepipe/internal/frame"
	"github.com/p2p-voice/voicepipe/internal/ring"
)

// Playback drives a speaker device, pulling mono samples from a ring
// buffer and upmixing them across the device's native channel count.
// An empty ring substitutes silence (equilibrium) rather than stalling
// the device callback.
type Playback struct {
	device     *malgo.Device
	in         *ring.Consumer
	sampleRate uint32

	monoScratch       []float32
	interleaveScratch []float32
}

// NewPlayback opens the given output device and wires its callback to
// pull mono samples from in. Playback.Channels and SampleRate are left
// at zero value so miniaudio opens the device's native format; this
// package performs its own upmix rather than relying on a driver-level
// channel conversion.
func NewPlayback(ctx *Context, dev Device, in *ring.Consumer) (*Playback, error) {
	p := &Playback{in: in}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	if dev.id != nil {
		deviceConfig.Playback.DeviceID = dev.id
	}

	callbacks := malgo.DeviceCallbacks{
		Data: p.onData,
	}

	device, err := malgo.InitDevice(ctx.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init playback device %q: %w", dev.Name, err)
	}
	p.device = device
	p.sampleRate = device.SampleRate()

	return p, nil
}

// SampleRate returns the device's native playback rate.
func (p *Playback) SampleRate() uint32 { return p.sampleRate }

// Start begins delivering callbacks.
func (p *Playback) Start() error {
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}
	return nil
}

// Stop halts the device stream and releases it. Idempotent.
func (p *Playback) Stop() {
	if p.device == nil {
		return
	}
	p.device.Stop()
	p.device.Uninit()
	p.device = nil
}

// onData is the audio-subsystem callback. Like Capture, the channel
// count is recovered from the output buffer size rather than a config
// getter.
func (p *Playback) onData(pOutputSample []byte, _ []byte, framecount uint32) {
	if framecount == 0 {
		return
	}
	channels := len(pOutputSample) / 4 / int(framecount)
	if channels == 0 {
		return
	}

	if cap(p.monoScratch) < int(framecount) {
		p.monoScratch = make([]float32, framecount)
	}
	mono := p.monoScratch[:framecount]
	for i := range mono {
		s, ok := p.in.Pop()
		if !ok {
			s = 0
		}
		mono[i] = s
	}

	if cap(p.interleaveScratch) < int(framecount)*channels {
		p.interleaveScratch = make([]float32, int(framecount)*channels)
	}
	interleaved := p.interleaveScratch[:int(framecount)*channels]
	frame.Upmix(channels, mono, interleaved)

	for i, v := range interleaved {
		binary.LittleEndian.PutUint32(pOutputSample[i*4:], math.Float32bits(v))
	}
}
