package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// DINBaud is the MIDI 1.0 DIN line rate.
const DINBaud = 31250

const readTimeout = 50 * time.Millisecond

// byteSource is the part of serial.Port the reader uses.
type byteSource interface {
	Read(p []byte) (int, error)
	Close() error
}

// SerialReader reads a DIN-MIDI stream from a UART and hands it over one
// byte at a time, the way a receive interrupt would.
type SerialReader struct {
	src    byteSource
	name   string
	logger *slog.Logger
}

// OpenSerial opens a DIN-MIDI UART at 31250 baud, 8N1.
func OpenSerial(name string, logger *slog.Logger) (*SerialReader, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: DINBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("midi serial: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("midi serial: set timeout on %s: %w", name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("midi serial: port opened", "device", name, "baud", DINBaud)
	return &SerialReader{src: p, name: name, logger: logger}, nil
}

// Run delivers bytes to onByte until ctx is cancelled or the port fails.
// A timed-out read returns zero bytes and is retried.
func (r *SerialReader) Run(ctx context.Context, onByte func(byte)) error {
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.src.Read(buf)
		for _, b := range buf[:n] {
			onByte(b)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("midi serial: %s closed", r.name)
		}
		if err != nil {
			return fmt.Errorf("midi serial: read %s: %w", r.name, err)
		}
	}
}

// Close closes the UART.
func (r *SerialReader) Close() error {
	r.logger.Info("midi serial: closing port", "device", r.name)
	return r.src.Close()
}
