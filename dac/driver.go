package dac

import (
	"log/slog"

	"github.com/chase3718/midicv/voice"
)

// Bus shifts one command word to a converter, holding its chip-select
// asserted for the duration of the transfer.
type Bus interface {
	Transfer(cs ChipSelect, w Word) error
}

// Driver implements voice.DAC on top of a Bus. Transfer errors are logged
// and dropped: the voice has no way to act on them.
type Driver struct {
	bus    Bus
	logger *slog.Logger
}

var _ voice.DAC = (*Driver)(nil)

// NewDriver returns a driver writing to bus. A nil logger uses slog.Default.
func NewDriver(bus Bus, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{bus: bus, logger: logger}
}

// Write12 sends code to a channel of the 12-bit converter.
func (d *Driver) Write12(ch voice.Channel, code uint16) {
	d.transfer(CS12, ch, uint32(code), Word12(ch, code))
}

// Write8 sends code to a channel of the 8-bit converter.
func (d *Driver) Write8(ch voice.Channel, code uint8) {
	d.transfer(CS8, ch, uint32(code), Word8(ch, code))
}

func (d *Driver) transfer(cs ChipSelect, ch voice.Channel, code uint32, w Word) {
	if err := d.bus.Transfer(cs, w); err != nil {
		d.logger.Error("dac: transfer failed", "chip", cs, "channel", ch, "code", code, "err", err)
		return
	}
	d.logger.Debug("dac: write", "chip", cs, "channel", ch, "code", code)
}
