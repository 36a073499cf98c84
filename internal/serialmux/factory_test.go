package serialmux

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewRealSerialMux_InvalidPath(t *testing.T) {
	// We can't open a real serial port in a unit test, but we can verify
	// the function returns an error for a missing device.
	mux, err := NewRealSerialMux("/dev/nonexistent-serial-port-12345", PortOptions{})
	if err == nil {
		mux.Close()
		t.Fatal("Expected error when opening non-existent serial port")
	}
	assert.Nil(t, mux)
}

func TestRealSerialPortFactory_InvalidOptions(t *testing.T) {
	_, err := NewRealSerialPortFactory().Open("/dev/ttyACM0", PortOptions{DataBits: 12})
	assert.Error(t, err)
}

func TestOpen_UsesFactory(t *testing.T) {
	port := NewTestableSerialPort()
	factory := NewMockSerialPortFactory(port)
	opts := PortOptions{BaudRate: 115200}

	mux, err := Open(factory, "/dev/ttyACM0", opts)
	require.NoError(t, err)
	require.NotNil(t, mux)

	call := factory.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "/dev/ttyACM0", call.Path)
	assert.Equal(t, opts, call.Options)
}

func TestOpen_Errors(t *testing.T) {
	factory := NewMockSerialPortFactory(nil)
	_, err := Open(factory, "", PortOptions{})
	assert.Error(t, err, "empty path should be rejected")
	assert.Nil(t, factory.LastCall(), "factory should not be called for empty path")

	factory.Error = errors.New("permission denied")
	_, err = Open(factory, "/dev/ttyUSB0", PortOptions{})
	assert.EqualError(t, err, "permission denied")
}

func TestSerialPortOpener(t *testing.T) {
	port := NewTestableSerialPort()
	var gotPath string
	opener := SerialPortOpener(func(path string, opts PortOptions) (SerialPorter, error) {
		gotPath = path
		return port, nil
	})

	mux, err := Open(opener, "COM5", PortOptions{})
	require.NoError(t, err)
	assert.NotNil(t, mux)
	assert.Equal(t, "COM5", gotPath)
}

func TestFixtureSerialMux_ReplaysLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	data := []byte("{\"am\": 1}\r\n\n{\"am\": 2}\n")
	mux := NewFixtureSerialMux(data, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []string
	for i := 0; i < 4; i++ {
		line, err := mux.ReadLine(ctx)
		require.NoError(t, err)
		got = append(got, line)
	}
	assert.Equal(t, []string{`{"am": 1}`, `{"am": 2}`, `{"am": 1}`, `{"am": 2}`}, got)

	require.NoError(t, mux.SendCommand("PING"))
	assert.Equal(t, "PING\n", mux.port.Written())

	require.NoError(t, mux.Close())
	_, err := mux.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestFixtureSerialMux_EmptyFixture(t *testing.T) {
	defer goleak.VerifyNone(t)

	mux := NewFixtureSerialMux([]byte("\n\n"), 0)
	defer mux.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := mux.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrStreamClosed)
}
