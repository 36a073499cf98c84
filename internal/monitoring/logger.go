// Package monitoring holds the process-wide diagnostic loggers. Components log
// through the Logf, Warnf and Debugf indirections so tests can redirect or mute
// them without touching the zerolog backend.
package monitoring

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	backend = newBackend(os.Stderr)
	verbose atomic.Bool
)

// Logf is the package-level diagnostic logger. It defaults to info-level
// zerolog output but may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = infof

// Warnf reports conditions an operator should look at, such as a silent device.
var Warnf func(format string, v ...interface{}) = warnf

// Debugf reports per-line detail (discarded lines, dropped datagrams). It is
// silent unless SetVerbose(true) has been called.
var Debugf func(format string, v ...interface{}) = debugf

func newBackend(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func infof(format string, v ...interface{}) {
	l := current()
	l.Info().Msgf(format, v...)
}

func warnf(format string, v ...interface{}) {
	l := current()
	l.Warn().Msgf(format, v...)
}

func debugf(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	l := current()
	l.Debug().Msgf(format, v...)
}

// SetLogger replaces Logf with f, leaving Warnf and Debugf on the zerolog
// backend. Passing nil mutes all three.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		noop := func(string, ...interface{}) {}
		Logf, Warnf, Debugf = noop, noop, noop
		return
	}
	Logf = f
}

// SetOutput points the zerolog backend at w. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	backend = newBackend(w)
}

// SetVerbose enables or disables Debugf output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether Debugf output is enabled.
func Verbose() bool {
	return verbose.Load()
}
