// Package testutil provides shared test helpers.
//
// OSCListener stands in for Sonic Pi or any other OSC receiver: it binds an
// ephemeral loopback UDP port and decodes whatever datagrams arrive.
package testutil

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// OSCListener captures OSC datagrams sent to a loopback UDP port.
type OSCListener struct {
	conn *net.UDPConn
	Host string
	Port int
}

// NewOSCListener listens on 127.0.0.1 with a kernel-assigned port. The socket
// is closed when the test finishes.
func NewOSCListener(t testing.TB) *OSCListener {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("failed to listen on UDP: %v", err)
	}
	return newListener(t, conn, "127.0.0.1")
}

// NewOSCListener6 listens on the IPv6 loopback ::1. The test is skipped on
// hosts without IPv6 loopback.
func NewOSCListener6(t testing.TB) *OSCListener {
	t.Helper()

	conn, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6loopback, Port: 0})
	if err != nil {
		t.Skipf("IPv6 loopback unavailable: %v", err)
	}
	return newListener(t, conn, "::1")
}

func newListener(t testing.TB, conn *net.UDPConn, host string) *OSCListener {
	t.Cleanup(func() { conn.Close() })
	addr := conn.LocalAddr().(*net.UDPAddr)
	return &OSCListener{conn: conn, Host: host, Port: addr.Port}
}

// Next waits up to timeout for one datagram and decodes it as an OSC message.
func (l *OSCListener) Next(t testing.TB, timeout time.Duration) *osc.Message {
	t.Helper()

	msg, err := l.read(timeout)
	if err != nil {
		t.Fatalf("no OSC message received: %v", err)
	}
	return msg
}

// ExpectNone fails the test if any datagram arrives within wait.
func (l *OSCListener) ExpectNone(t testing.TB, wait time.Duration) {
	t.Helper()

	msg, err := l.read(wait)
	if err == nil {
		t.Fatalf("unexpected OSC message %s %v", msg.Address, msg.Arguments)
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("unexpected read error: %v", err)
	}
}

func (l *OSCListener) read(timeout time.Duration) (*osc.Message, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, 65536)
	n, _, err := l.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}

	packet, err := osc.ParsePacket(string(buf[:n]))
	if err != nil {
		return nil, err
	}
	msg, ok := packet.(*osc.Message)
	if !ok {
		return nil, errors.New("received an OSC bundle, want a message")
	}
	return msg, nil
}
