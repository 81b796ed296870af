package midi

import "fmt"

// Channel voice status values, as found in the high nibble of a status byte.
const (
	NoteOff         uint8 = 0x80
	NoteOn          uint8 = 0x90
	PolyKeyPressure uint8 = 0xA0
	ControlChange   uint8 = 0xB0
	ProgramChange   uint8 = 0xC0
	ChannelPressure uint8 = 0xD0
	PitchBend       uint8 = 0xE0
)

const (
	statusFlag  = 0x80
	systemFirst = 0xF0
	kindMask    = 0xF0
	channelMask = 0x0F
)

// ModWheel is the controller number routed to the modulation output.
const ModWheel uint8 = 1

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName renders a MIDI note number as scientific pitch, e.g. 60 -> C4.
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}

// Message is a completed channel message: one status byte and two data
// bytes. Messages are handed straight to a Handler and never buffered.
type Message struct {
	Status uint8
	Data1  uint8
	Data2  uint8
}

// Kind returns the status with the channel bits cleared.
func (m Message) Kind() uint8 { return m.Status & kindMask }

// Channel returns the 0-based channel encoded in the status byte.
func (m Message) Channel() uint8 { return m.Status & channelMask }

// Bytes returns the message in wire order.
func (m Message) Bytes() []byte { return []byte{m.Status, m.Data1, m.Data2} }
