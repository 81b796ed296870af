// Package bridge talks to the MCU that owns the SPI converters and the
// gate/trigger pins, over a USB serial link.
package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/chase3718/midicv/dac"
	"github.com/chase3718/midicv/voice"
)

// SelectLine is the modem status input wired to the channel-select switch.
type SelectLine string

const (
	SelectNone SelectLine = "none"
	SelectCTS  SelectLine = "cts"
	SelectDSR  SelectLine = "dsr"
	SelectDCD  SelectLine = "dcd"
	SelectRI   SelectLine = "ri"
)

// ParseSelectLine accepts the names above, case-insensitively.
func ParseSelectLine(s string) (SelectLine, error) {
	switch l := SelectLine(strings.ToLower(strings.TrimSpace(s))); l {
	case SelectNone, SelectCTS, SelectDSR, SelectDCD, SelectRI:
		return l, nil
	case "":
		return SelectNone, nil
	}
	return "", fmt.Errorf("bridge: unknown select line %q", s)
}

// conn is the part of serial.Port the bridge uses.
type conn interface {
	Write(p []byte) (int, error)
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	Close() error
}

// Port is the serial link to the bridge MCU. It implements dac.Bus,
// voice.Outputs and the channel-select input.
type Port struct {
	mu     sync.Mutex
	conn   conn
	name   string
	lines  byte
	sel    SelectLine
	logger *slog.Logger
}

var (
	_ dac.Bus       = (*Port)(nil)
	_ voice.Outputs = (*Port)(nil)
)

// Open opens the named serial device at the given baud rate.
func Open(name string, baud int, sel SelectLine, logger *slog.Logger) (*Port, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("bridge: open %s: %w", name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bridge: port opened", "device", name, "baud", baud, "select", sel)
	return newPort(p, name, sel, logger), nil
}

func newPort(c conn, name string, sel SelectLine, logger *slog.Logger) *Port {
	return &Port{conn: c, name: name, sel: sel, logger: logger}
}

// Transfer sends one SPI word to the converter behind cs.
func (p *Port) Transfer(cs dac.ChipSelect, w dac.Word) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send(SPIFrame(cs, w))
}

// Set drives a digital line. The bridge keeps a shadow of both lines, so
// every change resends the full mask.
func (p *Port) Set(line voice.Line, high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if high {
		p.lines |= lineBit(line)
	} else {
		p.lines &^= lineBit(line)
	}
	if err := p.send(LinesFrame(p.lines)); err != nil {
		p.logger.Error("bridge: line write failed", "line", line, "high", high, "err", err)
	}
}

// ReadSelect reports the level of the channel-select input. With no select
// line configured, or when the status bits cannot be read, it reports low.
func (p *Port) ReadSelect() bool {
	if p.sel == SelectNone {
		return false
	}
	bits, err := p.conn.GetModemStatusBits()
	if err != nil {
		p.logger.Warn("bridge: modem status read failed", "err", err)
		return false
	}
	switch p.sel {
	case SelectCTS:
		return bits.CTS
	case SelectDSR:
		return bits.DSR
	case SelectDCD:
		return bits.DCD
	case SelectRI:
		return bits.RI
	}
	return false
}

// send writes f; p.mu must be held.
func (p *Port) send(f Frame) error {
	if _, err := p.conn.Write(f.Encode()); err != nil {
		return fmt.Errorf("bridge: write %s: %w", p.name, err)
	}
	return nil
}

// Close closes the underlying serial port.
func (p *Port) Close() error {
	p.logger.Info("bridge: closing port", "device", p.name)
	return p.conn.Close()
}
