// Serialmux provides an abstraction over a line-framed serial port. A single
// reader pulls lines with ReadLine while any number of debug subscribers get a
// best-effort copy of every line.
package serialmux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"tailscale.com/tsweb"

	"github.com/banshee-data/oscbridge/internal/httputil"
)

var (
	// ErrWriteFailed is returned by SendCommand when the port accepts fewer
	// bytes than the command plus its newline.
	ErrWriteFailed = errors.New("failed to write to serial port")

	// ErrStreamClosed is returned by ReadLine once the device has reached EOF
	// or the mux has been closed.
	ErrStreamClosed = errors.New("serial stream closed")
)

// MaxLineBytes bounds a single line. A longer line means framing is lost and
// is reported as a read error.
const MaxLineBytes = 1 << 20

// subscriberBuffer is the per-tap channel depth. Lines beyond it are dropped
// for that tap only.
const subscriberBuffer = 16

// SerialMux wraps a serial port that emits newline-terminated lines.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex

	startOnce sync.Once
	lines     chan string
	errMu     sync.Mutex
	err       error

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// ReadLine blocks until the next line is available, the stream fails, or
	// ctx is done.
	ReadLine(ctx context.Context) (string, error)
	// Subscribe creates a new channel for receiving copies of lines read from
	// the serial port. The ID is used when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the serial port.
	SendCommand(string) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux creates a SerialMux instance backed by the given port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
		lines:       make(chan string),
		done:        make(chan struct{}),
	}
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.isClosed() {
		// already closing; return a closed channel so callers don't block
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// SendCommand sends a command to the serial port.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n" // ensure command ends with a newline
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// ReadLine returns the next line from the port with the line terminator
// (LF or CRLF) removed.
//
// The blocking scan runs in a goroutine started on the first call, so a
// cancelled ReadLine never loses a line: it stays queued for the next call.
// Once the stream ends every call returns the same terminal error.
func (s *SerialMux[T]) ReadLine(ctx context.Context) (string, error) {
	s.startOnce.Do(func() { go s.scan() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", s.terminalErr()
		}
		return line, nil
	}
}

func (s *SerialMux[T]) scan() {
	defer close(s.lines)

	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 4096), MaxLineBytes)

	for scan.Scan() {
		line := scan.Text()
		s.publish(line)

		select {
		case s.lines <- line:
		case <-s.done:
			s.setErr(ErrStreamClosed)
			return
		}
	}

	err := scan.Err()
	switch {
	case s.isClosed(), err == nil:
		// bufio.Scanner reports io.EOF as a nil error
		err = ErrStreamClosed
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe):
		err = fmt.Errorf("%w: %v", ErrStreamClosed, err)
	default:
		err = fmt.Errorf("failed to read serial port: %w", err)
	}
	s.setErr(err)
}

// publish copies line to every subscriber without blocking the reader.
func (s *SerialMux[T]) publish(line string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
			// if the channel is full skip so as not to block the reader
		}
	}
}

func (s *SerialMux[T]) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *SerialMux[T]) terminalErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		return ErrStreamClosed
	}
	return s.err
}

func (s *SerialMux[T]) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close closes every subscriber channel and the underlying port. Blocked
// ReadLine calls return ErrStreamClosed. Close is safe to call more than once.
func (s *SerialMux[T]) Close() error {
	s.closeOnce.Do(func() {
		s.subscriberMu.Lock()
		close(s.done)
		for id, ch := range s.subscribers {
			close(ch)
			delete(s.subscribers, id)
		}
		s.subscriberMu.Unlock()

		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// API endpoint to write command to the serial port
	debug.HandleSilent("send-command-api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httputil.RequireMethod(w, r, http.MethodPost) {
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			httputil.BadRequest(w, "missing command")
			return
		}
		if err := s.SendCommand(command); err != nil {
			httputil.InternalServerError(w, "failed to write command")
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"written": command})
	}))

	// Server-Sent Events stream of lines coming from the serial port.
	debug.URL("/debug/tail", "live tail of serial telemetry (SSE)")
	debug.HandleSilent("tail", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httputil.RequireMethod(w, r, http.MethodGet) {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			httputil.InternalServerError(w, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					// Channel closed, exit gracefully
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))
}
