// Package dac encodes writes for the dual MCP4922 (12-bit) and MCP4902
// (8-bit) converters and routes them to a chip-select on a Bus.
package dac

import "github.com/chase3718/midicv/voice"

// ChipSelect identifies a converter on the SPI bus.
type ChipSelect uint8

const (
	CS12 ChipSelect = 1 // MCP4922: pitch and bend
	CS8  ChipSelect = 2 // MCP4902: mod and velocity
)

func (cs ChipSelect) String() string {
	switch cs {
	case CS12:
		return "dac12"
	case CS8:
		return "dac8"
	}
	return "unknown"
}

// Configuration bits of the MCP49x2 command word: buffered reference,
// 1x gain, output active.
const (
	flagChannelB = 0x80
	flagConfig   = 0x70
)

// Word is one 16-bit MCP49x2 command, MSB first.
type Word [2]byte

// Word12 encodes a 12-bit code. Codes above 4095 are truncated to 12 bits.
func Word12(ch voice.Channel, code uint16) Word {
	msb := byte(code>>8)&0x0F | flagConfig
	if ch == voice.ChannelB {
		msb |= flagChannelB
	}
	return Word{msb, byte(code)}
}

// Word8 encodes an 8-bit code; the converter takes it left-aligned in the
// 12-bit data field.
func Word8(ch voice.Channel, code uint8) Word {
	msb := code>>4 | flagConfig
	if ch == voice.ChannelB {
		msb |= flagChannelB
	}
	return Word{msb, code << 4}
}
