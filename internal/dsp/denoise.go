package dsp

import (
	"fmt"

	"github.com/zhangzhao-gg/go-rnnoise/rnnoise"

	"github.com/p2p-voice/voicepipe/internal/ring"
	"github.com/p2p-voice/voicepipe/internal/stage"
)

// DenoiseFrameSize is the fixed frame length the underlying model was
// trained against.
const DenoiseFrameSize = 480

// SampleRate is the fixed rate the suppressor runs at; the resample
// stages on either side of denoise convert to and from it.
const SampleRate = 48000

// denoiseThreshold is passed to FilterStream as the voice-activity
// gate; suppression always runs regardless of the reported activity,
// so the value only affects the vadProb/keepFrame hint we discard.
const denoiseThreshold = 0.5

// Denoise runs RNNoise-based suppression over fixed 480-sample frames.
// Samples are scaled to 16-bit integer magnitude on entry and back to
// unit range on exit, matching the range the model was trained on.
// The first output frame is a warm-up artifact of the filter's
// internal state and is discarded rather than forwarded.
type Denoise struct {
	stage.Worker

	in  *ring.Consumer
	out *ring.Producer

	filter      *rnnoise.NoiseFilter
	warmedUp    bool
	frameScratch []float32
}

// NewDenoise constructs the denoise stage.
func NewDenoise(in *ring.Consumer, out *ring.Producer) (*Denoise, error) {
	filter, err := rnnoise.NewNoiseFilter("")
	if err != nil {
		return nil, fmt.Errorf("init rnnoise filter: %w", err)
	}
	return &Denoise{
		in:           in,
		out:          out,
		filter:       filter,
		frameScratch: make([]float32, DenoiseFrameSize),
	}, nil
}

// Start launches the denoise worker.
func (d *Denoise) Start() {
	d.Worker.Start(d.step)
}

func (d *Denoise) step() bool {
	if d.in.OccupiedLen() < DenoiseFrameSize {
		return false
	}

	d.in.Drain(d.frameScratch)

	scaled := make([]float32, DenoiseFrameSize)
	for i, s := range d.frameScratch {
		scaled[i] = s * 32767
	}

	denoised, _, _, err := d.filter.FilterStream(scaled, denoiseThreshold)
	if err != nil {
		return true
	}

	if !d.warmedUp {
		d.warmedUp = true
		return true
	}

	for _, s := range denoised {
		d.out.Push(s / 32767)
	}
	return true
}
