package pipeline

import (
	"fmt"

	"github.com/p2p-voice/voicepipe/internal/audio"
	"github.com/p2p-voice/voicepipe/internal/codec"
	"github.com/p2p-voice/voicepipe/internal/dsp"
	"github.com/p2p-voice/voicepipe/internal/ring"
	"github.com/p2p-voice/voicepipe/internal/transport"
)

// P2P is the bidirectional network pipeline shape:
//
//	capture -> RB1 -> resample(in->48k) -> RB2 -> denoise -> RB3 -> encode -> socket
//	socket -> decode -> RB4 -> resample(48k->out) -> RB5 -> playback
type P2P struct {
	lifecycle

	playback *audio.Playback
	capture  *audio.Capture
	socket   *transport.UDP

	resampleIn  *dsp.Resampler
	denoise     *dsp.Denoise
	encoder     *codec.Encoder
	decoder     *codec.Decoder
	resampleOut *dsp.Resampler

	rb1, rb2, rb3, rb4, rb5 *ring.Buffer
}

// NewP2P builds and starts a P2P pipeline. localPort binds
// 0.0.0.0:localPort (0 lets the OS pick an ephemeral port);
// peerEndpoint is the fixed remote address every packet is sent to
// and the sole source decoded packets are accepted from.
//
// As in SelfListen, playback is opened before capture so capture is
// the device stream stopped first at teardown.
func NewP2P(ctx *audio.Context, inDevice, outDevice audio.Device, localPort int, peerEndpoint string) (*P2P, error) {
	p := &P2P{
		rb1: ring.New(ring.DefaultCapacity),
		rb2: ring.New(ring.DefaultCapacity),
		rb3: ring.New(ring.DefaultCapacity),
		rb4: ring.New(ring.DefaultCapacity),
		rb5: ring.New(ring.DefaultCapacity),
	}

	rb1P, rb1C := p.rb1.Split()
	rb2P, rb2C := p.rb2.Split()
	rb3P, rb3C := p.rb3.Split()
	rb4P, rb4C := p.rb4.Split()
	rb5P, rb5C := p.rb5.Split()

	socket, err := transport.NewUDP(localPort, peerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("open p2p socket: %w", err)
	}
	p.socket = socket

	playback, err := audio.NewPlayback(ctx, outDevice, rb5C)
	if err != nil {
		socket.Close()
		return nil, err
	}
	p.playback = playback

	capture, err := audio.NewCapture(ctx, inDevice, rb1P)
	if err != nil {
		playback.Stop()
		socket.Close()
		return nil, err
	}
	p.capture = capture

	p.resampleIn = dsp.NewResampler(int(capture.SampleRate()), dsp.SampleRate, rb1C, rb2P)

	denoise, err := dsp.NewDenoise(rb2C, rb3P)
	if err != nil {
		capture.Stop()
		playback.Stop()
		socket.Close()
		return nil, err
	}
	p.denoise = denoise

	encoder, err := codec.NewEncoder(rb3C, socket)
	if err != nil {
		capture.Stop()
		playback.Stop()
		socket.Close()
		return nil, err
	}
	p.encoder = encoder

	decoder, err := codec.NewDecoder(socket, rb4P)
	if err != nil {
		capture.Stop()
		playback.Stop()
		socket.Close()
		return nil, err
	}
	p.decoder = decoder

	p.resampleOut = dsp.NewResampler(dsp.SampleRate, int(playback.SampleRate()), rb4C, rb5P)

	p.resampleIn.Start()
	p.denoise.Start()
	p.encoder.Start()
	p.decoder.Start()
	p.resampleOut.Start()

	if err := p.playback.Start(); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.capture.Start(); err != nil {
		p.Close()
		return nil, err
	}

	p.setRunning()
	return p, nil
}

// LocalPort returns the bound UDP port, useful when constructed with
// localPort 0.
func (p *P2P) LocalPort() int { return p.socket.LocalPort() }

// State reports the pipeline's current lifecycle position.
func (p *P2P) State() State { return p.lifecycle.State() }

// Close tears the pipeline down: signal every worker, stop capture,
// stop playback, join workers, close the socket, release the ring
// buffers. Idempotent.
func (p *P2P) Close() {
	if !p.beginStop() {
		return
	}
	defer p.finishStop()

	teardown(
		[]worker{p.resampleIn, p.denoise, p.encoder, p.decoder, p.resampleOut},
		func() { p.capture.Stop() },
		func() { p.playback.Stop() },
	)
	p.socket.Close()

	p.rb1, p.rb2, p.rb3, p.rb4, p.rb5 = nil, nil, nil, nil, nil
}
