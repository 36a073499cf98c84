package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/banshee-data/oscbridge/internal/bridge"
	"github.com/banshee-data/oscbridge/internal/osc"
	"github.com/banshee-data/oscbridge/internal/serialmux"
)

// DefaultConfigPath is the example configuration shipped with the repository.
// It documents every field with its default value.
const DefaultConfigPath = "config/oscbridge.example.jsonc"

const (
	// DefaultDevice is where an Arduino-class board usually enumerates on Linux.
	DefaultDevice = "/dev/ttyACM0"
	// DefaultOSCHost and DefaultOSCPort point at a local Sonic Pi.
	DefaultOSCHost = "127.0.0.1"
	DefaultOSCPort = 4559
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// SerialConfig selects and configures the input device.
type SerialConfig struct {
	Device string `json:"device"`
	serialmux.PortOptions
}

// OSCConfig is the destination of outbound messages.
type OSCConfig struct {
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	ValueType osc.ValueType `json:"value_type"`
}

// BridgeConfig is the root of the configuration file. All values are fixed at
// startup.
type BridgeConfig struct {
	Serial SerialConfig   `json:"serial"`
	OSC    OSCConfig      `json:"osc"`
	Routes []bridge.Route `json:"routes"`

	// StallTimeout is a duration string like "5s". Empty or "0s" disables
	// stall warnings.
	StallTimeout string `json:"stall_timeout,omitempty"`

	// DebugListen is the address of the /debug/ and /metrics server. Empty
	// disables it.
	DebugListen string `json:"debug_listen,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *BridgeConfig {
	return &BridgeConfig{
		Serial: SerialConfig{
			Device:      DefaultDevice,
			PortOptions: serialmux.PortOptions{BaudRate: serialmux.DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
		},
		OSC: OSCConfig{
			Host:      DefaultOSCHost,
			Port:      DefaultOSCPort,
			ValueType: osc.Float32,
		},
		Routes:       bridge.DefaultRoutes(),
		StallTimeout: "0s",
	}
}

// Load reads a JSON or JSONC file. Fields omitted from the file keep their
// default values; a "routes" array replaces the default routes entirely.
func Load(path string) (*BridgeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" && ext != ".jsonc" {
		return nil, fmt.Errorf("config file must have .json or .jsonc extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cfg, nil
}

// Parse decodes JSONC (JSON with comments and trailing commas) over the
// defaults and validates the result. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Parse(data []byte) (*BridgeConfig, error) {
	cfg := Default()

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// current directory. Panics if the file cannot be loaded, intended for test
// setup.
func MustLoadDefaultConfig() *BridgeConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,    // from cmd/oscbridge/
		"../../" + DefaultConfigPath, // from internal/config/
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *BridgeConfig) Validate() error {
	if strings.TrimSpace(c.Serial.Device) == "" {
		return fmt.Errorf("serial.device is required")
	}
	if _, err := c.Serial.PortOptions.Normalise(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	if strings.TrimSpace(c.OSC.Host) == "" {
		return fmt.Errorf("osc.host is required")
	}
	if c.OSC.Port <= 0 || c.OSC.Port > 65535 {
		return fmt.Errorf("osc.port must be between 1 and 65535, got %d", c.OSC.Port)
	}
	if _, err := osc.ParseValueType(string(c.OSC.ValueType)); err != nil {
		return fmt.Errorf("osc.value_type: %w", err)
	}

	if err := bridge.ValidateRoutes(c.Routes); err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	if c.StallTimeout != "" {
		d, err := time.ParseDuration(c.StallTimeout)
		if err != nil {
			return fmt.Errorf("invalid stall_timeout '%s': %w", c.StallTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("stall_timeout must not be negative, got %s", c.StallTimeout)
		}
	}

	if c.DebugListen != "" {
		if _, _, err := net.SplitHostPort(c.DebugListen); err != nil {
			return fmt.Errorf("invalid debug_listen %q: %w", c.DebugListen, err)
		}
	}

	return nil
}

// GetStallTimeout returns the parsed stall timeout, or 0 when unset.
func (c *BridgeConfig) GetStallTimeout() time.Duration {
	if c.StallTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.StallTimeout)
	if err != nil {
		return 0
	}
	return d
}

// PortOptions returns the normalised serial options.
func (c *BridgeConfig) PortOptions() (serialmux.PortOptions, error) {
	return c.Serial.PortOptions.Normalise()
}
