// Package transport implements the P2P pipeline's network leg: a
// connected UDP socket carrying one Opus packet per datagram.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// readDeadline bounds each receive poll so the read loop can observe
// shutdown promptly instead of blocking indefinitely on an idle link.
const readDeadline = 50 * time.Millisecond

// maxPacketSize is large enough for any Opus VoIP frame this pipeline
// produces; packets are never fragmented.
const maxPacketSize = 4000

// UDP is a bound, connected UDP socket between this pipeline and
// exactly one peer. It implements codec.PacketSink and
// codec.PacketSource so the encode and decode stages can be wired
// directly to it.
type UDP struct {
	conn *net.UDPConn
	peer *net.UDPAddr

	incoming chan []byte
	stop     chan struct{}
	done     chan struct{}
}

// NewUDP binds localPort (0.0.0.0:localPort) and targets peerEndpoint
// as the fixed remote address for SendPacket. localPort of 0 lets the
// OS choose an ephemeral port.
func NewUDP(localPort int, peerEndpoint string) (*UDP, error) {
	localAddr := &net.UDPAddr{IP: net.IPv4zero, Port: localPort}
	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", localPort, err)
	}

	peer, err := net.ResolveUDPAddr("udp", peerEndpoint)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve peer endpoint %q: %w", peerEndpoint, err)
	}

	u := &UDP{
		conn:     conn,
		peer:     peer,
		incoming: make(chan []byte, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go u.readLoop()
	return u, nil
}

// LocalPort returns the port actually bound, useful when localPort was
// requested as 0.
func (u *UDP) LocalPort() int {
	return u.conn.LocalAddr().(*net.UDPAddr).Port
}

// SendPacket writes data to the fixed peer address. Implements
// codec.PacketSink.
func (u *UDP) SendPacket(data []byte) error {
	_, err := u.conn.WriteToUDP(data, u.peer)
	return err
}

// ReceivePacket returns the next buffered datagram, if any. Implements
// codec.PacketSource; never blocks.
func (u *UDP) ReceivePacket() (data []byte, ok bool) {
	select {
	case data = <-u.incoming:
		return data, true
	default:
		return nil, false
	}
}

// readLoop polls the socket with a short deadline so it can observe
// Close promptly, pushing each datagram from the peer to the incoming
// channel; datagrams from any other address are discarded. A full
// incoming channel drops the datagram rather than blocking the socket
// read.
func (u *UDP) readLoop() {
	defer close(u.done)
	buf := make([]byte, maxPacketSize)

	for {
		select {
		case <-u.stop:
			return
		default:
		}

		u.conn.SetReadDeadline(time.Now().Add(readDeadline))
		n, from, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return
		}
		if !from.IP.Equal(u.peer.IP) || from.Port != u.peer.Port {
			continue
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])
		select {
		case u.incoming <- packet:
		default:
		}
	}
}

// Close stops the read loop and releases the socket. Idempotent.
func (u *UDP) Close() {
	select {
	case <-u.stop:
		return
	default:
		close(u.stop)
	}
	u.conn.Close()
	<-u.done
}
