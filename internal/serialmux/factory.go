package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// RealSerialPortFactory opens hardware ports through go.bug.st/serial.
type RealSerialPortFactory struct{}

// NewRealSerialPortFactory returns a factory for hardware serial ports.
func NewRealSerialPortFactory() *RealSerialPortFactory {
	return &RealSerialPortFactory{}
}

// Open opens the device at path with the given options.
func (f *RealSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}

// Open opens a port at path using factory and wraps it in a SerialMux.
func Open(factory SerialPortFactory, path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	if path == "" {
		return nil, fmt.Errorf("serial device path is required")
	}
	port, err := factory.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux(port), nil
}

// NewRealSerialMux creates a SerialMux instance backed by a real serial port at the
// given path using the provided serial options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	return Open(NewRealSerialPortFactory(), path, opts)
}
