// Package bridge relays line-framed JSON telemetry to OSC.
//
// Each line is decoded on its own and each route is forwarded on its own:
// a bad line loses only that line, a bad field loses only that field, and a
// failed send loses only that datagram. The one failure that ends Run is the
// input stream itself going away.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/oscbridge/internal/monitoring"
	"github.com/banshee-data/oscbridge/internal/timeutil"
)

// LineSource yields newline-framed text lines. ReadLine blocks until a line is
// available and returns an error once the stream is closed or broken, or
// ctx.Err() when ctx is done.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
}

// Sender emits one addressed scalar message.
type Sender interface {
	Send(path string, value float64) error
}

// Options configures a Bridge.
type Options struct {
	// Routes lists the fields to forward. Required.
	Routes []Route

	// StallTimeout, when positive, logs a warning each time this long passes
	// without a line. Stalls never stop the bridge.
	StallTimeout time.Duration

	// Registerer receives the bridge's Prometheus collectors. Nil skips
	// registration.
	Registerer prometheus.Registerer

	// Clock stamps the last-line time. Nil uses the wall clock.
	Clock timeutil.Clock
}

// Bridge forwards telemetry from a LineSource to a Sender.
type Bridge struct {
	source       LineSource
	sender       Sender
	routes       []Route
	stallTimeout time.Duration
	clock        timeutil.Clock

	metrics *metrics
	stats   counters
}

// New validates opts and returns a Bridge ready to Run.
func New(source LineSource, sender Sender, opts Options) (*Bridge, error) {
	if source == nil {
		return nil, errors.New("bridge: line source is required")
	}
	if sender == nil {
		return nil, errors.New("bridge: sender is required")
	}
	if err := ValidateRoutes(opts.Routes); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	if opts.StallTimeout < 0 {
		return nil, fmt.Errorf("bridge: stall timeout must not be negative, got %s", opts.StallTimeout)
	}

	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("bridge: failed to register metrics: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	return &Bridge{
		source:       source,
		sender:       sender,
		routes:       append([]Route(nil), opts.Routes...),
		stallTimeout: opts.StallTimeout,
		clock:        clock,
		metrics:      m,
	}, nil
}

// Routes returns a copy of the configured routes.
func (b *Bridge) Routes() []Route {
	return append([]Route(nil), b.routes...)
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return b.stats.snapshot()
}

// Run forwards lines until ctx is done or the source fails. It returns
// ctx.Err() on cancellation and the wrapped source error otherwise; it never
// returns nil.
func (b *Bridge) Run(ctx context.Context) error {
	monitoring.Logf("bridge forwarding %d route(s): %s", len(b.routes), b.routeList())

	for {
		line, err := b.readLine(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("reading telemetry: %w", err)
		}
		b.Process(line)
	}
}

// readLine applies the stall timeout around the source's blocking read.
func (b *Bridge) readLine(ctx context.Context) (string, error) {
	if b.stallTimeout <= 0 {
		return b.source.ReadLine(ctx)
	}

	for {
		readCtx, cancel := context.WithTimeout(ctx, b.stallTimeout)
		line, err := b.source.ReadLine(readCtx)
		cancel()

		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			b.stats.readStalls.Add(1)
			b.metrics.stalls.Inc()
			monitoring.Warnf("no telemetry received for %s; is the device still sending?", b.stallTimeout)
			continue
		}
		return line, err
	}
}

// Process handles a single line and returns the number of messages sent.
func (b *Bridge) Process(line string) int {
	b.stats.linesRead.Add(1)
	b.metrics.lines.Inc()
	b.stats.mu.Lock()
	b.stats.lastLineAt = b.clock.Now()
	b.stats.mu.Unlock()

	line = strings.TrimSpace(line)
	if line == "" {
		b.discard(reasonEmpty, line, nil)
		return 0
	}

	sample, err := DecodeSample(line)
	if err != nil {
		b.discard(reasonMalformed, line, err)
		return 0
	}

	sent := 0
	for _, r := range b.routes {
		value, err := sample.Float(r.Field)
		if err != nil {
			b.skip(r, err)
			continue
		}

		if err := b.sender.Send(r.Path, value); err != nil {
			b.stats.sendFailures.Add(1)
			b.metrics.sendFailures.WithLabelValues(r.Path).Inc()
			monitoring.Debugf("dropped %s=%v: %v", r.Path, value, err)
			continue
		}

		b.stats.messagesSent.Add(1)
		b.metrics.sent.WithLabelValues(r.Path).Inc()
		sent++
	}
	return sent
}

func (b *Bridge) discard(reason, line string, err error) {
	b.stats.linesDiscarded.Add(1)
	b.metrics.discarded.WithLabelValues(reason).Inc()
	if err != nil {
		monitoring.Debugf("discarded line %q: %v", line, err)
	}
}

func (b *Bridge) skip(r Route, err error) {
	reason := reasonNotNumeric
	if errors.Is(err, ErrFieldMissing) {
		reason = reasonMissing
	}
	b.stats.fieldsSkipped.Add(1)
	b.metrics.skipped.WithLabelValues(r.Field, reason).Inc()
	monitoring.Debugf("skipped %s: %v", r.Path, err)
}

func (b *Bridge) routeList() string {
	parts := make([]string, len(b.routes))
	for i, r := range b.routes {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
