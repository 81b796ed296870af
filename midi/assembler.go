package midi

// Assembler rebuilds channel messages from a MIDI byte stream delivered one
// byte at a time, honouring running status.
//
// Every status in 0x80-0xEF is assumed to carry two data bytes. Program
// Change and Channel Pressure are not special-cased: their single data byte
// is held as a first data byte and the assembler then waits for a second one
// until the next status byte arrives. This matches the hardware this
// controller replaces and is left as is.
//
// The zero value is ready to use. An Assembler is not safe for concurrent use.
type Assembler struct {
	runningStatus  uint8
	awaitingSecond bool
	firstData      uint8
}

// Feed consumes one byte. It returns the completed message and true when b
// is the second data byte of a message, and false otherwise.
func (a *Assembler) Feed(b byte) (Message, bool) {
	switch {
	case b >= systemFirst:
		// System common and real-time bytes leave the parser untouched.
		return Message{}, false

	case b&statusFlag != 0:
		a.runningStatus = b
		a.awaitingSecond = false
		return Message{}, false

	case a.awaitingSecond:
		a.awaitingSecond = false
		return Message{Status: a.runningStatus, Data1: a.firstData, Data2: b}, true

	case a.runningStatus == 0:
		// Data byte with no status to attach it to.
		return Message{}, false
	}

	a.firstData = b
	a.awaitingSecond = true
	return Message{}, false
}

// RunningStatus returns the last status byte seen, or 0 if none.
func (a *Assembler) RunningStatus() uint8 { return a.runningStatus }

// AwaitingSecondByte reports whether a first data byte is pending.
func (a *Assembler) AwaitingSecondByte() bool { return a.awaitingSecond }

// Reset forgets the running status and any pending data byte.
func (a *Assembler) Reset() { *a = Assembler{} }
