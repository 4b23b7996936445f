package pipeline

import (
	"github.com/p2p-voice/voicepipe/internal/audio"
	"github.com/p2p-voice/voicepipe/internal/dsp"
	"github.com/p2p-voice/voicepipe/internal/ring"
)

// SelfListen is the loopback pipeline shape:
//
//	capture -> RB1 -> resample(in->48k) -> RB2 -> denoise -> RB3 -> resample(48k->out) -> RB4 -> playback
type SelfListen struct {
	lifecycle

	playback *audio.Playback
	capture  *audio.Capture

	resampleIn  *dsp.Resampler
	denoise     *dsp.Denoise
	resampleOut *dsp.Resampler

	rb1, rb2, rb3, rb4 *ring.Buffer
}

// NewSelfListen builds and starts a SelfListen pipeline against the
// given already-chosen input and output devices.
//
// The playback device is opened before the capture device so that,
// per the pipeline's reverse-order-of-creation teardown rule, capture
// is the one stopped first and playback last.
func NewSelfListen(ctx *audio.Context, inDevice, outDevice audio.Device) (*SelfListen, error) {
	s := &SelfListen{
		rb1: ring.New(ring.DefaultCapacity),
		rb2: ring.New(ring.DefaultCapacity),
		rb3: ring.New(ring.DefaultCapacity),
		rb4: ring.New(ring.DefaultCapacity),
	}

	rb1P, rb1C := s.rb1.Split()
	rb2P, rb2C := s.rb2.Split()
	rb3P, rb3C := s.rb3.Split()
	rb4P, rb4C := s.rb4.Split()

	playback, err := audio.NewPlayback(ctx, outDevice, rb4C)
	if err != nil {
		return nil, err
	}
	s.playback = playback

	capture, err := audio.NewCapture(ctx, inDevice, rb1P)
	if err != nil {
		playback.Stop()
		return nil, err
	}
	s.capture = capture

	s.resampleIn = dsp.NewResampler(int(capture.SampleRate()), dsp.SampleRate, rb1C, rb2P)
	denoise, err := dsp.NewDenoise(rb2C, rb3P)
	if err != nil {
		capture.Stop()
		playback.Stop()
		return nil, err
	}
	s.denoise = denoise
	s.resampleOut = dsp.NewResampler(dsp.SampleRate, int(playback.SampleRate()), rb3C, rb4P)

	s.resampleIn.Start()
	s.denoise.Start()
	s.resampleOut.Start()

	if err := s.playback.Start(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.capture.Start(); err != nil {
		s.Close()
		return nil, err
	}

	s.setRunning()
	return s, nil
}

// State reports the pipeline's current lifecycle position.
func (s *SelfListen) State() State { return s.lifecycle.State() }

// Close tears the pipeline down: signal every worker, stop capture,
// stop playback, join workers, release the ring buffers. Idempotent.
func (s *SelfListen) Close() {
	if !s.beginStop() {
		return
	}
	defer s.finishStop()

	teardown(
		[]worker{s.resampleIn, s.denoise, s.resampleOut},
		func() { s.capture.Stop() },
		func() { s.playback.Stop() },
	)

	s.rb1, s.rb2, s.rb3, s.rb4 = nil, nil, nil, nil
}
