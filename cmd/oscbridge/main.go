// oscbridge reads newline-delimited JSON telemetry from a serial device and
// forwards selected numeric fields as OSC messages over UDP, by default to a
// Sonic Pi instance on the same machine.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/banshee-data/oscbridge/internal/bridge"
	"github.com/banshee-data/oscbridge/internal/config"
	"github.com/banshee-data/oscbridge/internal/monitoring"
	"github.com/banshee-data/oscbridge/internal/osc"
	"github.com/banshee-data/oscbridge/internal/serialmux"
	"github.com/banshee-data/oscbridge/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "oscbridge: %v\n", err)
		os.Exit(1)
	}
}

// run returns nil when ctx is cancelled (a requested shutdown) and an error
// for anything that stops the bridge on its own.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	var f cliFlags
	fs := newFlagSet(&f)
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if f.version {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	monitoring.SetVerbose(f.verbose)

	cfg, err := loadConfig(&f, fs)
	if err != nil {
		return err
	}

	source, err := openSource(&f, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	client, err := osc.NewClient(cfg.OSC.Host, cfg.OSC.Port, cfg.OSC.ValueType)
	if err != nil {
		return err
	}
	monitoring.Logf("sending OSC %s to %s", client.ValueType(), client.Addr())

	registry := prometheus.NewRegistry()
	b, err := bridge.New(source, client, bridge.Options{
		Routes:       cfg.Routes,
		StallTimeout: cfg.GetStallTimeout(),
		Registerer:   registry,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.DebugListen != "" {
		ln, err := net.Listen("tcp", cfg.DebugListen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.DebugListen, err)
		}
		server := &http.Server{
			Handler:           newDebugHandler(source, b, registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		monitoring.Logf("debug server listening on http://%s/debug/", ln.Addr())

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveDebug(ctx, server, ln)
		}()
	}

	err = b.Run(ctx)
	shutdown := ctx.Err() != nil
	cancel()
	wg.Wait()

	if shutdown {
		monitoring.Logf("shutdown complete, %d message(s) sent", b.Stats().MessagesSent)
		return nil
	}
	return err
}

// openSource opens the serial device, or the fixture replay in dev mode.
func openSource(f *cliFlags, cfg *config.BridgeConfig) (serialmux.SerialMuxInterface, error) {
	if f.dev {
		data, err := os.ReadFile(f.fixtures)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixtures file: %w", err)
		}
		monitoring.Logf("dev mode: replaying %s every %s", f.fixtures, f.fixtureInterval)
		return serialmux.NewFixtureSerialMux(data, f.fixtureInterval), nil
	}

	opts, err := cfg.PortOptions()
	if err != nil {
		return nil, err
	}
	mux, err := serialmux.NewRealSerialMux(cfg.Serial.Device, opts)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("opened %s at %s", cfg.Serial.Device, opts)
	return mux, nil
}

// newDebugHandler mounts the tsweb /debug/ page for the serial source and the
// bridge, plus Prometheus metrics at /metrics.
func newDebugHandler(source serialmux.SerialMuxInterface, b *bridge.Bridge, registry *prometheus.Registry) http.Handler {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	source.AttachAdminRoutes(mux)
	b.AttachAdminRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

func serveDebug(ctx context.Context, server *http.Server, ln net.Listener) {
	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Warnf("debug server stopped: %v", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Warnf("debug server shutdown error: %v", err)
		// force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			monitoring.Warnf("debug server force close error: %v", err)
		}
	}
	<-errc
}
