package codec_test

import (
	"fmt"
	"math"
	"net"
	"testing"
	"time"

	"github.com/p2p-voice/voicepipe/internal/codec"
	"github.com/p2p-voice/voicepipe/internal/ring"
	"github.com/p2p-voice/voicepipe/internal/transport"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		t.Fatalf("probe free port: %v", err)
	}
	port := probe.LocalAddr().(*net.UDPAddr).Port
	probe.Close()
	return port
}

// TestP2PRoundTripOverLoopback feeds a second of 1kHz sine through the
// full encode -> socket -> decode chain on a self-connected UDP
// loopback and confirms the recovered samples still carry that
// frequency within start-up latency, matching the P2P round-trip
// scenario.
func TestP2PRoundTripOverLoopback(t *testing.T) {
	port := freeUDPPort(t)
	sock, err := transport.NewUDP(port, fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer sock.Close()

	sendBuf := ring.New(ring.DefaultCapacity * 4)
	sendP, sendC := sendBuf.Split()

	enc, err := codec.NewEncoder(sendC, sock)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	recvBuf := ring.New(ring.DefaultCapacity * 4)
	recvP, recvC := recvBuf.Split()

	dec, err := codec.NewDecoder(sock, recvP)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	const freq = 1000.0
	const sampleRate = float64(codec.SampleRate)
	total := int(sampleRate) // one second

	sine := make([]float32, total)
	for i := range sine {
		sine[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	sendP.PushAll(sine)

	enc.Start()
	dec.Start()
	defer enc.Stop()
	defer dec.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for recvC.OccupiedLen() < total-codec.FrameSize && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	var received []float32
	for {
		s, ok := recvC.Pop()
		if !ok {
			break
		}
		received = append(received, s)
	}

	if len(received) < total/2 {
		t.Fatalf("round trip recovered %d samples, want at least %d", len(received), total/2)
	}

	crossings := 0
	for i := 1; i < len(received); i++ {
		if (received[i-1] < 0) != (received[i] < 0) {
			crossings++
		}
	}
	duration := float64(len(received)) / sampleRate
	estFreq := float64(crossings) / (2 * duration)
	if math.Abs(estFreq-freq) > 100 {
		t.Fatalf("recovered frequency %.1f Hz, want near %.1f Hz", estFreq, freq)
	}
}
