package voice

import (
	"errors"
	"fmt"
)

// MaxCode12 is the largest code a 12-bit DAC accepts.
const MaxCode12 = 4095

// Default playable range: C1..C6, five octaves at one volt per octave.
const (
	DefaultLowestNote  uint8 = 24
	DefaultHighestNote uint8 = 84
)

var (
	ErrTableLength = errors.New("voice: voltage table length does not match note range")
	ErrTableOrder  = errors.New("voice: voltage table is not nondecreasing")
	ErrTableCode   = errors.New("voice: voltage table code exceeds 12 bits")
)

// defaultCodes spans 0-5 V on a 4.095 V-reference DAC with a 1.22x output
// stage: 819 codes per volt, 68.25 per semitone.
var defaultCodes = []uint16{
	0, 68, 137, 205, 273, 341, 410, 478, 546, 614, 683, 751,
	819, 887, 956, 1024, 1092, 1161, 1229, 1297, 1365, 1434, 1502, 1570,
	1638, 1707, 1775, 1843, 1911, 1980, 2048, 2116, 2185, 2253, 2321, 2389,
	2458, 2526, 2594, 2662, 2731, 2799, 2867, 2935, 3004, 3072, 3140, 3209,
	3277, 3345, 3413, 3482, 3550, 3618, 3686, 3755, 3823, 3891, 3959, 4028,
	4095,
}

// DefaultCodes returns a copy of the stock five-octave volt/octave table.
func DefaultCodes() []uint16 {
	return append([]uint16(nil), defaultCodes...)
}

// Table maps note numbers in [Lowest, Highest] to 12-bit pitch CV codes.
type Table struct {
	lowest  uint8
	highest uint8
	codes   []uint16
}

// NewTable validates codes against the note range. The table must have
// exactly highest-lowest+1 entries, be nondecreasing and fit in 12 bits.
func NewTable(lowest, highest uint8, codes []uint16) (*Table, error) {
	if highest < lowest || len(codes) != int(highest-lowest)+1 {
		return nil, fmt.Errorf("%w: notes %d..%d need %d codes, got %d",
			ErrTableLength, lowest, highest, int(highest)-int(lowest)+1, len(codes))
	}
	for i, c := range codes {
		if c > MaxCode12 {
			return nil, fmt.Errorf("%w: index %d = %d", ErrTableCode, i, c)
		}
		if i > 0 && c < codes[i-1] {
			return nil, fmt.Errorf("%w: index %d (%d) < index %d (%d)", ErrTableOrder, i, c, i-1, codes[i-1])
		}
	}
	return &Table{
		lowest:  lowest,
		highest: highest,
		codes:   append([]uint16(nil), codes...),
	}, nil
}

// DefaultTable returns the stock table for notes 24..84.
func DefaultTable() *Table {
	t, err := NewTable(DefaultLowestNote, DefaultHighestNote, defaultCodes)
	if err != nil {
		panic(err)
	}
	return t
}

// Lowest is the first playable note.
func (t *Table) Lowest() uint8 { return t.lowest }

// Highest is the last playable note.
func (t *Table) Highest() uint8 { return t.highest }

// Code returns the pitch code for note. ok is false outside the table range.
func (t *Table) Code(note uint8) (code uint16, ok bool) {
	if note < t.lowest || note > t.highest {
		return 0, false
	}
	return t.codes[note-t.lowest], true
}
