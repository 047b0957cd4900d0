// internal/input/serial.go
// Package input provides physical key sources for the keyer.
package input

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.bug.st/serial"
)

// Line is the modem status line a key is wired to.
type Line string

// Modem status lines readable from a serial port
const (
	LineCTS Line = "cts"
	LineDSR Line = "dsr"
	LineDCD Line = "dcd"
	LineRI  Line = "ri"
)

var (
	// ErrInvalidLine indicates an unknown modem status line
	ErrInvalidLine = errors.New("serial line must be one of cts, dsr, dcd, ri")
	// ErrPortRequired indicates no serial port was configured
	ErrPortRequired = errors.New("serial port is required")
)

// ParseLine parses a line name, case-insensitively.
func ParseLine(s string) (Line, error) {
	switch l := Line(strings.ToLower(strings.TrimSpace(s))); l {
	case LineCTS, LineDSR, LineDCD, LineRI:
		return l, nil
	}
	return "", ErrInvalidLine
}

// SerialConfig holds serial key configuration.
type SerialConfig struct {
	Port string
	Baud int
	Line Line
	// Invert treats an asserted line as released
	Invert bool
}

// modemPort is the part of serial.Port the key needs.
type modemPort interface {
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	Close() error
}

// SerialKey reads a straight key wired between an output line (DTR or RTS)
// and a modem status input of a serial port.
type SerialKey struct {
	port   modemPort
	line   Line
	invert bool
}

// OpenSerial opens the port and raises DTR and RTS to feed the key.
func OpenSerial(cfg SerialConfig) (*SerialKey, error) {
	if cfg.Port == "" {
		return nil, ErrPortRequired
	}
	line, err := ParseLine(string(cfg.Line))
	if err != nil {
		return nil, err
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = 9600
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := port.SetDTR(true); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set DTR: %w", err)
	}
	if err := port.SetRTS(true); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set RTS: %w", err)
	}
	slog.Info("serial key opened", "port", cfg.Port, "line", line, "invert", cfg.Invert)

	return &SerialKey{port: port, line: line, invert: cfg.Invert}, nil
}

// Pressed implements keyer.Key.
func (k *SerialKey) Pressed() (bool, error) {
	bits, err := k.port.GetModemStatusBits()
	if err != nil {
		return false, fmt.Errorf("read modem status: %w", err)
	}
	return lineState(bits, k.line) != k.invert, nil
}

// Close closes the port.
func (k *SerialKey) Close() error {
	slog.Info("serial key closed")
	return k.port.Close()
}

func lineState(bits *serial.ModemStatusBits, line Line) bool {
	if bits == nil {
		return false
	}
	switch line {
	case LineCTS:
		return bits.CTS
	case LineDSR:
		return bits.DSR
	case LineDCD:
		return bits.DCD
	case LineRI:
		return bits.RI
	}
	return false
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
