package transport

import (
	"fmt"
	"net"
	"testing"
	"time"
)

// freeUDPPort asks the OS for an ephemeral port by briefly binding to
// it, then releases it for the real test socket to use.
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

// TestUDPSendReceiveLoopback binds a socket to itself on 127.0.0.1 and
// confirms a sent datagram comes back out through ReceivePacket.
func TestUDPSendReceiveLoopback(t *testing.T) {
	port := freeUDPPort(t)
	sock, err := NewUDP(port, fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer sock.Close()

	want := []byte{1, 2, 3, 4, 5}
	if err := sock.SendPacket(want); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		data, ok := sock.ReceivePacket()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if len(data) != len(want) {
			t.Fatalf("got %d bytes, want %d", len(data), len(want))
		}
		for i := range want {
			if data[i] != want[i] {
				t.Fatalf("byte %d = %d, want %d", i, data[i], want[i])
			}
		}
		return
	}
	t.Fatalf("timed out waiting for loopback packet")
}

// TestUDPLocalPortResolvesEphemeral confirms LocalPort reports the
// concrete port the OS assigned when 0 was requested.
func TestUDPLocalPortResolvesEphemeral(t *testing.T) {
	peerPort := freeUDPPort(t)
	sock, err := NewUDP(0, fmt.Sprintf("127.0.0.1:%d", peerPort))
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer sock.Close()

	if sock.LocalPort() == 0 {
		t.Fatalf("expected a concrete ephemeral port, got 0")
	}
}
