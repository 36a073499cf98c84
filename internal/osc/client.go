// Package osc sends scalar telemetry values as Open Sound Control messages
// over UDP.
package osc

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

// ValueType selects the OSC argument type used for values.
type ValueType string

const (
	// Float32 encodes values with the OSC 'f' tag. Sonic Pi and python-osc
	// expect this.
	Float32 ValueType = "float32"
	// Float64 encodes values with the OSC 'd' tag.
	Float64 ValueType = "float64"
)

// ParseValueType accepts "float32"/"f" and "float64"/"d". An empty string
// selects Float32.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "float32", "f":
		return Float32, nil
	case "float64", "double", "d":
		return Float64, nil
	default:
		return "", fmt.Errorf("unsupported OSC value type %q: expected float32 or float64", s)
	}
}

// Client sends one OSC message per value to a fixed host and port.
type Client struct {
	client    *osc.Client
	valueType ValueType
	addr      string
}

// NewClient creates a client for host:port. host may be a name, an IPv4
// address or an IPv6 literal with or without brackets.
func NewClient(host string, port int, valueType ValueType) (*Client, error) {
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(host), "["), "]")
	if host == "" {
		return nil, fmt.Errorf("OSC host is required")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid OSC port %d", port)
	}
	vt, err := ParseValueType(string(valueType))
	if err != nil {
		return nil, err
	}

	// go-osc joins host and port with a bare colon
	dialHost := host
	if strings.Contains(host, ":") {
		dialHost = "[" + host + "]"
	}

	return &Client{
		client:    osc.NewClient(dialHost, port),
		valueType: vt,
		addr:      net.JoinHostPort(host, strconv.Itoa(port)),
	}, nil
}

// Send emits a single message at path carrying value.
func (c *Client) Send(path string, value float64) error {
	msg := osc.NewMessage(path)
	switch c.valueType {
	case Float64:
		msg.Append(value)
	default:
		msg.Append(float32(value))
	}

	if err := c.client.Send(msg); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", path, c.addr, err)
	}
	return nil
}

// Addr returns the destination as host:port.
func (c *Client) Addr() string {
	return c.addr
}

// ValueType returns the argument type used for values.
func (c *Client) ValueType() ValueType {
	return c.valueType
}
