package bridge

import (
	"github.com/chase3718/midicv/dac"
	"github.com/chase3718/midicv/voice"
)

const (
	SOF0 = 0xAA
	SOF1 = 0x55

	CmdSPI   = 0x20
	CmdLines = 0x21
)

// Line bits in a CmdLines payload.
const (
	LineGate    = 1 << 0
	LineTrigger = 1 << 1
)

// Frame is one command to the bridge MCU.
type Frame struct {
	Cmd     byte
	Payload []byte
}

// SPIFrame asks the bridge to shift w out with cs asserted.
func SPIFrame(cs dac.ChipSelect, w dac.Word) Frame {
	return Frame{Cmd: CmdSPI, Payload: []byte{byte(cs), w[0], w[1]}}
}

// LinesFrame sets both digital lines at once.
func LinesFrame(mask byte) Frame {
	return Frame{Cmd: CmdLines, Payload: []byte{mask}}
}

func lineBit(l voice.Line) byte {
	switch l {
	case voice.Gate:
		return LineGate
	case voice.Trigger:
		return LineTrigger
	}
	return 0
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][payload...][CKS]
//
// LEN counts CMD and payload; CKS is LEN^CMD^payload.
func (f Frame) Encode() []byte {
	length := byte(len(f.Payload) + 1) // +1 for CMD byte
	cks := length ^ f.Cmd
	for _, b := range f.Payload {
		cks ^= b
	}

	out := make([]byte, 0, len(f.Payload)+5)
	out = append(out, SOF0, SOF1, length, f.Cmd)
	out = append(out, f.Payload...)
	out = append(out, cks)
	return out
}
