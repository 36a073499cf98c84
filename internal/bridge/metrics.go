package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "oscbridge"

// Discard and skip reasons used as metric labels.
const (
	reasonEmpty      = "empty"
	reasonMalformed  = "malformed"
	reasonMissing    = "missing"
	reasonNotNumeric = "not_numeric"
)

type metrics struct {
	lines        prometheus.Counter
	discarded    *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	sent         *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
	stalls       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_total",
			Help:      "Telemetry lines read from the serial device.",
		}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_discarded_total",
			Help:      "Telemetry lines dropped before any route was attempted.",
		}, []string{"reason"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fields_skipped_total",
			Help:      "Routed fields that were absent or not numeric.",
		}, []string{"field", "reason"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_sent_total",
			Help:      "OSC messages handed to the UDP socket.",
		}, []string{"path"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_failures_total",
			Help:      "OSC messages that could not be sent.",
		}, []string{"path"}),
		stalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "read_stalls_total",
			Help:      "Stall timeouts elapsed without a telemetry line.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.lines, m.discarded, m.skipped, m.sent, m.sendFailures, m.stalls} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Stats is a point-in-time copy of the bridge counters.
type Stats struct {
	LinesRead      uint64    `json:"lines_read"`
	LinesDiscarded uint64    `json:"lines_discarded"`
	FieldsSkipped  uint64    `json:"fields_skipped"`
	MessagesSent   uint64    `json:"messages_sent"`
	SendFailures   uint64    `json:"send_failures"`
	ReadStalls     uint64    `json:"read_stalls"`
	LastLineAt     time.Time `json:"last_line_at"`
}

type counters struct {
	linesRead      atomic.Uint64
	linesDiscarded atomic.Uint64
	fieldsSkipped  atomic.Uint64
	messagesSent   atomic.Uint64
	sendFailures   atomic.Uint64
	readStalls     atomic.Uint64

	mu         sync.Mutex
	lastLineAt time.Time
}

func (c *counters) snapshot() Stats {
	c.mu.Lock()
	last := c.lastLineAt
	c.mu.Unlock()

	return Stats{
		LinesRead:      c.linesRead.Load(),
		LinesDiscarded: c.linesDiscarded.Load(),
		FieldsSkipped:  c.fieldsSkipped.Load(),
		MessagesSent:   c.messagesSent.Load(),
		SendFailures:   c.sendFailures.Load(),
		ReadStalls:     c.readStalls.Load(),
		LastLineAt:     last,
	}
}
