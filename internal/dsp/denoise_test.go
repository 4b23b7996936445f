package dsp

import (
	"math"
	"testing"

	"github.com/p2p-voice/voicepipe/internal/ring"
)

// TestDenoiseDropsWarmupFrame confirms the stage emits nothing for the
// first 480-sample frame it processes regardless of input, matching
// the filter's documented warm-up behavior.
func TestDenoiseDropsWarmupFrame(t *testing.T) {
	inBuf := ring.New(ring.DefaultCapacity)
	outBuf := ring.New(ring.DefaultCapacity)
	inP, inC := inBuf.Split()
	_, outC := outBuf.Split()

	d, err := NewDenoise(inC, nil)
	if err != nil {
		t.Fatalf("NewDenoise: %v", err)
	}
	outP, _ := outBuf.Split()
	d.out = outP

	frame := make([]float32, DenoiseFrameSize)
	for i := range frame {
		frame[i] = float32(math.Sin(float64(i) * 0.2))
	}
	inP.PushAll(frame)

	if !d.step() {
		t.Fatalf("expected first step to make progress")
	}
	if n := outC.OccupiedLen(); n != 0 {
		t.Fatalf("warm-up frame should not be forwarded, got %d samples", n)
	}

	inP.PushAll(frame)
	if !d.step() {
		t.Fatalf("expected second step to make progress")
	}
	if n := outC.OccupiedLen(); n != DenoiseFrameSize {
		t.Fatalf("second frame occupied = %d, want %d", n, DenoiseFrameSize)
	}
}

func TestDenoiseWaitsForFullFrame(t *testing.T) {
	inBuf := ring.New(ring.DefaultCapacity)
	_, inC := inBuf.Split()

	d, err := NewDenoise(inC, nil)
	if err != nil {
		t.Fatalf("NewDenoise: %v", err)
	}

	if d.step() {
		t.Fatalf("step should not progress on an empty input ring")
	}
}
