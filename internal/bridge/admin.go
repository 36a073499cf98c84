package bridge

import (
	"net/http"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/oscbridge/internal/httputil"
)

// AttachAdminRoutes publishes the bridge counters on the /debug/ page and
// serves them as JSON at /debug/bridge-stats.
func (b *Bridge) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KV("Routes", b.routeList())
	debug.KVFunc("Lines read", func() any { return b.Stats().LinesRead })
	debug.KVFunc("Lines discarded", func() any { return b.Stats().LinesDiscarded })
	debug.KVFunc("Fields skipped", func() any { return b.Stats().FieldsSkipped })
	debug.KVFunc("Messages sent", func() any { return b.Stats().MessagesSent })
	debug.KVFunc("Send failures", func() any { return b.Stats().SendFailures })
	debug.KVFunc("Read stalls", func() any { return b.Stats().ReadStalls })
	debug.KVFunc("Last line", func() any { return b.lastLineAge() })

	debug.Handle("bridge-stats", "bridge counters (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httputil.RequireMethod(w, r, http.MethodGet) {
			return
		}
		httputil.WriteJSONOK(w, struct {
			Stats
			Routes []Route `json:"routes"`
		}{b.Stats(), b.Routes()})
	}))
}

func (b *Bridge) lastLineAge() string {
	last := b.Stats().LastLineAt
	if last.IsZero() {
		return "never"
	}
	return b.clock.Since(last).Round(time.Millisecond).String() + " ago"
}
