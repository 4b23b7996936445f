// Package dsp implements the fixed-frame signal processing stages that
// sit between capture and the codec: sample-rate conversion and noise
// suppression. Both operate on mono float32 samples, one fixed-size
// chunk at a time, wired as stage.Worker steps between ring endpoints.
package dsp

import (
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/p2p-voice/voicepipe/internal/ring"
	"github.com/p2p-voice/voicepipe/internal/stage"
)

// ResampleChunkIn is the fixed number of input samples consumed per
// resample step, matching the codec's 20ms frame at 48kHz.
const ResampleChunkIn = 960

// Resampler converts a fixed-size chunk of input-rate samples to the
// corresponding number of output-rate samples using frequency-domain
// zero-padding/truncation around the Nyquist bin. Each chunk is
// resampled independently; the boundary leakage this introduces is a
// known tradeoff of chunked FFT resampling and is acceptable for
// real-time voice at these chunk sizes.
type Resampler struct {
	stage.Worker

	in  *ring.Consumer
	out *ring.Producer

	inRate, outRate   int
	chunkIn, chunkOut int

	inBuf []float64
}

// NewResampler builds a resampler from inRate to outRate. If the rates
// match, each step still runs but becomes a pure passthrough copy (no FFT
// round trip), matching the spec's matched-rate property.
func NewResampler(inRate, outRate int, in *ring.Consumer, out *ring.Producer) *Resampler {
	chunkOut := int(math.Round(float64(ResampleChunkIn) * float64(outRate) / float64(inRate)))
	return &Resampler{
		in:       in,
		out:      out,
		inRate:   inRate,
		outRate:  outRate,
		chunkIn:  ResampleChunkIn,
		chunkOut: chunkOut,
		inBuf:    make([]float64, ResampleChunkIn),
	}
}

// Start launches the resample worker.
func (r *Resampler) Start() {
	r.Worker.Start(r.step)
}

func (r *Resampler) step() bool {
	if r.in.OccupiedLen() < r.chunkIn {
		return false
	}

	chunk := make([]float32, r.chunkIn)
	r.in.Drain(chunk)

	if r.inRate == r.outRate {
		for _, s := range chunk {
			r.out.Push(s)
		}
		return true
	}

	for i, s := range chunk {
		r.inBuf[i] = float64(s)
	}

	resampled := resampleFFT(r.inBuf, r.chunkOut)
	for _, s := range resampled {
		r.out.Push(float32(s))
	}
	return true
}

// resampleFFT resamples x (length n) to length m using the
// scipy.signal.resample FFT algorithm: transform to the frequency
// domain, zero-pad or truncate symmetrically around Nyquist, inverse
// transform, and rescale by the length ratio.
func resampleFFT(x []float64, m int) []float64 {
	n := len(x)
	if n == m {
		out := make([]float64, n)
		copy(out, x)
		return out
	}

	cx := make([]complex128, n)
	for i, v := range x {
		cx[i] = complex(v, 0)
	}
	spectrum := fft.FFT(cx)

	resized := make([]complex128, m)
	minLen := n
	if m < minLen {
		minLen = m
	}
	half := minLen / 2

	for i := 0; i <= half; i++ {
		resized[i] = spectrum[i]
	}
	for i := 1; i < minLen-half; i++ {
		resized[m-i] = spectrum[n-i]
	}

	timeDomain := fft.IFFT(resized)
	scale := float64(m) / float64(n)

	out := make([]float64, m)
	for i, c := range timeDomain {
		out[i] = real(c) * scale
	}
	return out
}
