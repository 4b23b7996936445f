// Package codec wires the pipeline's fixed-size mono frames to the
// Opus VoIP profile: encode turns 960-sample frames into packets for
// the transport stage, decode turns received packets back into
// samples for playback.
package codec

import (
	"fmt"

	"github.com/thesyncim/gopus"

	"github.com/p2p-voice/voicepipe/internal/ring"
	"github.com/p2p-voice/voicepipe/internal/stage"
)

// FrameSize is the fixed 20ms frame the VoIP profile encodes at 48kHz.
const FrameSize = 960

// SampleRate is the only rate the pipeline hands to the codec; the
// resample stage upstream guarantees it.
const SampleRate = 48000

// PacketSink receives one encoded Opus packet per call. The transport
// stage implements this to hand packets to the network.
type PacketSink interface {
	SendPacket(data []byte) error
}

// Encoder drains fixed 960-sample mono frames and encodes each into an
// Opus VoIP packet, handed to sink. A send failure drops the packet and
// keeps running, since the transport may recover on the next frame; an
// encoder runtime failure is treated as unrecoverable and stops the
// stage rather than discarding frames forever.
type Encoder struct {
	stage.Worker

	in   *ring.Consumer
	sink PacketSink

	enc          *gopus.Encoder
	frameScratch []float32
	packetBuf    []byte
}

// NewEncoder builds the encode stage against the VoIP application
// profile, the only profile the pipeline uses.
func NewEncoder(in *ring.Consumer, sink PacketSink) (*Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, 1, gopus.ApplicationVoIP)
	if err != nil {
		return nil, fmt.Errorf("init opus encoder: %w", err)
	}
	return &Encoder{
		in:           in,
		sink:         sink,
		enc:          enc,
		frameScratch: make([]float32, FrameSize),
		packetBuf:    make([]byte, 4000),
	}, nil
}

// Start launches the encode worker.
func (e *Encoder) Start() {
	e.Worker.Start(e.step)
}

func (e *Encoder) step() bool {
	if e.in.OccupiedLen() < FrameSize {
		return false
	}
	e.in.Drain(e.frameScratch)

	n, err := e.enc.Encode(e.frameScratch, e.packetBuf)
	if err != nil {
		e.SignalStop()
		return false
	}
	if n == 0 {
		// DTX: encoder suppressed a silent frame, nothing to send.
		return true
	}

	if err := e.sink.SendPacket(e.packetBuf[:n]); err != nil {
		return true
	}
	return true
}
