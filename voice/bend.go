package voice

// BendCenter is the pitch-bend MSB at rest.
const BendCenter uint8 = 0x40

// OneVolt is the 12-bit code for 1 V, the resting pitch-bend output.
const OneVolt uint16 = 819

// Bend turns the pitch-bend MSB into a CV code biased around 1 V. The
// output is bias+value for every value except center, which snaps back to
// exactly bias. Values below center still add their (smaller) value; there
// is no signed offset.
type Bend struct {
	bias uint16
	last uint8
}

// NewBend returns a processor resting at center.
func NewBend(bias uint16) Bend {
	return Bend{bias: bias, last: BendCenter}
}

// Code converts value and records it as the last value seen.
func (b *Bend) Code(value uint8) uint16 {
	b.last = value
	if value == BendCenter {
		return b.bias
	}
	return b.bias + uint16(value)
}

// Bias is the code written for a centered wheel.
func (b *Bend) Bias() uint16 { return b.bias }

// Last is the most recent value passed to Code.
func (b *Bend) Last() uint8 { return b.last }
