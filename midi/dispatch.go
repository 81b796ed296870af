package midi

// Handler receives the channel messages a monophonic CV voice acts on.
type Handler interface {
	ModWheel(value uint8)
	PitchBend(value uint8)
	NoteOn(note, velocity uint8)
	NoteOff(note uint8)
}

// Dispatch routes m to h if it is addressed to channel (0-based). Control
// Change is only forwarded for the mod wheel, and pitch bend only forwards
// its MSB (Data2). Everything else is dropped. Dispatch reports whether a
// Handler method was called.
func Dispatch(m Message, channel uint8, h Handler) bool {
	if m.Channel() != channel {
		return false
	}
	switch m.Kind() {
	case ControlChange:
		if m.Data1 != ModWheel {
			return false
		}
		h.ModWheel(m.Data2)
	case PitchBend:
		h.PitchBend(m.Data2)
	case NoteOn:
		h.NoteOn(m.Data1, m.Data2)
	case NoteOff:
		h.NoteOff(m.Data1)
	default:
		return false
	}
	return true
}
