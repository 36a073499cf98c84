package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/banshee-data/oscbridge/internal/bridge"
	"github.com/banshee-data/oscbridge/internal/config"
	"github.com/banshee-data/oscbridge/internal/osc"
	"github.com/banshee-data/oscbridge/internal/serialmux"
)

// cliFlags holds the raw command-line values. Flags that were not set on the
// command line leave the config file (or default) value alone.
type cliFlags struct {
	configPath   string
	device       string
	baud         int
	oscHost      string
	oscPort      int
	oscType      string
	routes       []string
	stallTimeout time.Duration
	debugListen  string

	dev             bool
	fixtures        string
	fixtureInterval time.Duration

	verbose bool
	version bool
}

func newFlagSet(f *cliFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("oscbridge", pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVarP(&f.configPath, "config", "c", "", "path to a .json or .jsonc config file")
	fs.StringVarP(&f.device, "port", "p", config.DefaultDevice, "serial device to read telemetry from (ignored with --dev)")
	fs.IntVar(&f.baud, "baud", serialmux.DefaultBaudRate, "serial baud rate")
	fs.StringVar(&f.oscHost, "osc-host", config.DefaultOSCHost, "OSC destination host")
	fs.IntVar(&f.oscPort, "osc-port", config.DefaultOSCPort, "OSC destination UDP port")
	fs.StringVar(&f.oscType, "osc-type", string(osc.Float32), "OSC value type: float32 or float64")
	fs.StringArrayVarP(&f.routes, "route", "r", nil, "field=/path route; repeat for several (replaces configured routes)")
	fs.DurationVar(&f.stallTimeout, "stall-timeout", 0, "warn when no line arrives for this long (0 disables)")
	fs.StringVar(&f.debugListen, "debug-listen", "", "address for the /debug/ page and /metrics, e.g. 127.0.0.1:8099")

	fs.BoolVar(&f.dev, "dev", false, "replay --fixtures instead of opening a serial device")
	fs.StringVar(&f.fixtures, "fixtures", "fixtures.txt", "newline-delimited JSON replayed in --dev mode")
	fs.DurationVar(&f.fixtureInterval, "fixture-interval", 50*time.Millisecond, "delay between replayed fixture lines")

	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log discarded lines and failed sends")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	return fs
}

// loadConfig reads the config file (if any), overlays the flags that were
// explicitly set and validates the result.
func loadConfig(f *cliFlags, fs *pflag.FlagSet) (*config.BridgeConfig, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	if err := f.apply(fs, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *cliFlags) apply(fs *pflag.FlagSet, cfg *config.BridgeConfig) error {
	if fs.Changed("port") {
		cfg.Serial.Device = f.device
	}
	if fs.Changed("baud") {
		cfg.Serial.BaudRate = f.baud
	}
	if fs.Changed("osc-host") {
		cfg.OSC.Host = f.oscHost
	}
	if fs.Changed("osc-port") {
		cfg.OSC.Port = f.oscPort
	}
	if fs.Changed("osc-type") {
		vt, err := osc.ParseValueType(f.oscType)
		if err != nil {
			return fmt.Errorf("--osc-type: %w", err)
		}
		cfg.OSC.ValueType = vt
	}
	if fs.Changed("route") {
		routes := make([]bridge.Route, 0, len(f.routes))
		for _, s := range f.routes {
			r, err := bridge.ParseRoute(s)
			if err != nil {
				return fmt.Errorf("--route: %w", err)
			}
			routes = append(routes, r)
		}
		cfg.Routes = routes
	}
	if fs.Changed("stall-timeout") {
		cfg.StallTimeout = f.stallTimeout.String()
	}
	if fs.Changed("debug-listen") {
		cfg.DebugListen = f.debugListen
	}
	return nil
}
