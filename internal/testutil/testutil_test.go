package testutil

import (
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

func TestOSCListener_Next(t *testing.T) {
	listener := NewOSCListener(t)
	if listener.Port == 0 {
		t.Fatal("expected a kernel-assigned port")
	}

	client := osc.NewClient(listener.Host, listener.Port)
	msg := osc.NewMessage("/accel")
	msg.Append(float32(0.5))
	if err := client.Send(msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got := listener.Next(t, time.Second)
	if got.Address != "/accel" {
		t.Errorf("Address = %q, want /accel", got.Address)
	}
	if len(got.Arguments) != 1 || got.Arguments[0] != float32(0.5) {
		t.Errorf("Arguments = %v, want [0.5]", got.Arguments)
	}
}

func TestOSCListener_ExpectNone(t *testing.T) {
	listener := NewOSCListener(t)
	listener.ExpectNone(t, 20*time.Millisecond)
}

func TestOSCListener6(t *testing.T) {
	listener := NewOSCListener6(t)
	if listener.Host != "::1" {
		t.Errorf("Host = %q, want ::1", listener.Host)
	}

	client := osc.NewClient("[::1]", listener.Port)
	if err := client.Send(osc.NewMessage("/gyroZ", float32(1))); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := listener.Next(t, time.Second); got.Address != "/gyroZ" {
		t.Errorf("Address = %q, want /gyroZ", got.Address)
	}
}
