package serialmux

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

var errPortClosed = errors.New("serial port closed")

// FixturePort replays recorded telemetry as if it came from a device. Writes
// are captured so debug commands can be inspected.
type FixturePort struct {
	r *io.PipeReader

	mu      sync.Mutex
	written bytes.Buffer
}

func (p *FixturePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *FixturePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

// Close stops the replay goroutine and unblocks readers.
func (p *FixturePort) Close() error {
	return p.r.Close()
}

// Written returns everything written to the port so far.
func (p *FixturePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// NewFixtureSerialMux creates a SerialMux that replays the non-empty lines of
// data in a loop, one line per interval. It is used by --dev runs on machines
// without the microcontroller attached.
func NewFixtureSerialMux(data []byte, interval time.Duration) *SerialMux[*FixturePort] {
	r, w := io.Pipe()
	port := &FixturePort{r: r}

	var lines [][]byte
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, []byte(line+"\n"))
	}

	go func() {
		defer w.Close()
		if len(lines) == 0 {
			return
		}

		var tick <-chan time.Time
		if interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			for _, line := range lines {
				if tick != nil {
					<-tick
				}
				// fails with io.ErrClosedPipe once the port is closed
				if _, err := w.Write(line); err != nil {
					return
				}
			}
		}
	}()

	return NewSerialMux(port)
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
// It provides fine-grained control over reads, writes, errors, and blocking.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by Read once ReadBuffer is drained, if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than requested
	ShortWrite bool

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	// readCond is used to signal blocked readers
	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read returns buffered data. When the buffer is empty it returns ReadError if
// set, blocks if BlockReads is set, and returns io.EOF otherwise.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	for {
		if t.Closed {
			return 0, errPortClosed
		}
		if t.ReadBuffer.Len() > 0 {
			return t.ReadBuffer.Read(p)
		}
		if t.ReadError != nil {
			err := t.ReadError
			t.ReadError = nil
			return 0, err
		}
		if !t.BlockReads {
			return 0, io.EOF
		}
		t.readCond.Wait()
	}
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errPortClosed
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	n, err = t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast() // Wake up any blocked readers

	return t.CloseError
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Broadcast()
}

// FailReads makes the next Read on an empty buffer return err.
func (t *TestableSerialPort) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadError = err
	t.readCond.Broadcast()
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

// IsClosed reports whether Close has been called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.Closed
}

// MockSerialPortFactory implements SerialPortFactory for testing.
type MockSerialPortFactory struct {
	mu sync.Mutex

	// Port is the port to return from Open
	Port SerialPorter

	// Error is returned by Open if set
	Error error

	// OpenCalls records all Open calls
	OpenCalls []MockOpenCall
}

// MockOpenCall records details of an Open call.
type MockOpenCall struct {
	Path    string
	Options PortOptions
}

// NewMockSerialPortFactory creates a new MockSerialPortFactory.
func NewMockSerialPortFactory(port SerialPorter) *MockSerialPortFactory {
	return &MockSerialPortFactory{Port: port}
}

// Open returns the configured port or error.
func (f *MockSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.OpenCalls = append(f.OpenCalls, MockOpenCall{
		Path:    path,
		Options: opts,
	})

	if f.Error != nil {
		return nil, f.Error
	}

	return f.Port, nil
}

// LastCall returns the most recent Open call, or nil if none.
func (f *MockSerialPortFactory) LastCall() *MockOpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.OpenCalls) == 0 {
		return nil
	}
	return &f.OpenCalls[len(f.OpenCalls)-1]
}
