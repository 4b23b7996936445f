package codec

import (
	"fmt"

	"github.com/thesyncim/gopus"

	"github.com/p2p-voice/voicepipe/internal/ring"
	"github.com/p2p-voice/voicepipe/internal/stage"
)

// PacketSource yields received Opus packets to the decode stage. The
// transport stage implements this. ok is false when nothing has
// arrived; the decode stage never fabricates a packet to drive
// concealment.
type PacketSource interface {
	ReceivePacket() (data []byte, ok bool)
}

// Decoder pulls received packets from source and decodes each into a
// 960-sample mono frame pushed to out. No packet loss concealment is
// performed: a missed packet simply means no frame is produced for
// that interval, matching the stated non-goal of synthesizing audio
// for gaps. A decoder runtime failure is treated as unrecoverable and
// stops the stage rather than discarding packets forever.
type Decoder struct {
	stage.Worker

	source PacketSource
	out    *ring.Producer

	dec       *gopus.Decoder
	pcmScratch []float32
}

// NewDecoder builds the decode stage against the VoIP application
// profile's fixed mono 48kHz configuration.
func NewDecoder(source PacketSource, out *ring.Producer) (*Decoder, error) {
	dec, err := gopus.NewDecoder(SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("init opus decoder: %w", err)
	}
	return &Decoder{
		source:     source,
		out:        out,
		dec:        dec,
		pcmScratch: make([]float32, FrameSize),
	}, nil
}

// Start launches the decode worker.
func (d *Decoder) Start() {
	d.Worker.Start(d.step)
}

func (d *Decoder) step() bool {
	data, ok := d.source.ReceivePacket()
	if !ok {
		return false
	}

	n, err := d.dec.Decode(data, d.pcmScratch)
	if err != nil {
		d.SignalStop()
		return false
	}

	for _, s := range d.pcmScratch[:n] {
		d.out.Push(s)
	}
	return true
}
