// Package voice implements a monophonic MIDI-to-CV voice: note to pitch CV,
// velocity and mod wheel to 8-bit CV, pitch bend to a biased 12-bit CV, and
// gate/trigger sequencing with a pass-counted trigger pulse.
package voice

import (
	"log/slog"

	"github.com/chase3718/midicv/midi"
)

// Channel selects one of the two outputs of a dual DAC.
type Channel uint8

const (
	ChannelA Channel = 0
	ChannelB Channel = 1
)

// Output assignment on the two DAC chips.
const (
	PitchChannel    = ChannelA // 12-bit
	BendChannel     = ChannelB // 12-bit
	ModChannel      = ChannelA // 8-bit
	VelocityChannel = ChannelB // 8-bit
)

// DAC writes codes to the 12-bit and 8-bit converters. Writes are
// synchronous and cannot fail from the voice's point of view.
type DAC interface {
	Write12(ch Channel, code uint16)
	Write8(ch Channel, code uint8)
}

// Line names a digital output.
type Line uint8

const (
	Gate Line = iota
	Trigger
)

func (l Line) String() string {
	switch l {
	case Gate:
		return "gate"
	case Trigger:
		return "trigger"
	}
	return "unknown"
}

// Outputs drives the gate and trigger lines.
type Outputs interface {
	Set(line Line, high bool)
}

// Config holds the compile-time options of the voice.
type Config struct {
	Table      *Table
	PulseTicks uint16
	Retrigger  bool
	BendBias   uint16
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Table:      DefaultTable(),
		PulseTicks: DefaultPulseTicks,
		Retrigger:  true,
		BendBias:   OneVolt,
	}
}

// State is a point-in-time copy of the voice and its last written outputs.
type State struct {
	Gate         bool
	Trigger      bool
	LastNote     uint8
	Pitch        uint16
	Bend         uint16
	Mod          uint8
	Velocity     uint8
	TimerArmed   bool
	TimerElapsed uint16
}

// Voice is the single-note state machine. It is Idle while the gate is low
// and Sounding while it is high. There is no note stack: only the most
// recent note can release the gate, and releasing it never falls back to
// another key that is still held.
//
// Voice is not safe for concurrent use; callers serialize message handling
// and Tick.
type Voice struct {
	dac       DAC
	out       Outputs
	table     *Table
	retrigger bool
	timer     PulseTimer
	bend      Bend
	logger    *slog.Logger

	gate     bool
	trigger  bool
	lastNote uint8

	pitchCode uint16
	bendCode  uint16
	modCode   uint8
	velocity  uint8
}

var _ midi.Handler = (*Voice)(nil)

// New builds a voice. A nil cfg.Table selects the default table.
func New(cfg Config, dac DAC, out Outputs, logger *slog.Logger) *Voice {
	if cfg.Table == nil {
		cfg.Table = DefaultTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		dac:       dac,
		out:       out,
		table:     cfg.Table,
		retrigger: cfg.Retrigger,
		timer:     NewPulseTimer(cfg.PulseTicks),
		bend:      NewBend(cfg.BendBias),
		logger:    logger,
	}
}

// Init drives every output to its power-on level: pitch 0 V, bend at the
// bias, gate and trigger low.
func (v *Voice) Init() {
	v.writePitch(0)
	v.writeBend(v.bend.Bias())
	v.setGate(false)
	v.setTrigger(false)
	v.timer.Disarm()
	v.logger.Debug("voice: outputs initialised", "bend_bias", v.bend.Bias())
}

// NoteOn handles a channel-matched Note On. Notes below the table are
// ignored, as are notes above it (even with velocity 0). Velocity 0 is a
// Note Off.
func (v *Voice) NoteOn(note, velocity uint8) {
	if note < v.table.Lowest() {
		v.logger.Debug("voice: note below range", "note", note)
		return
	}
	code, ok := v.table.Code(note)
	if !ok {
		v.logger.Debug("voice: note above range", "note", note)
		return
	}
	if velocity == 0 {
		v.NoteOff(note)
		return
	}

	v.writePitch(code)
	v.writeVelocity(velocity)

	switch {
	case !v.gate:
		v.setGate(true)
		v.setTrigger(true)
		v.timer.Arm()
	case v.retrigger:
		v.setTrigger(true)
		v.timer.Arm()
		v.writeVelocity(velocity)
	default:
		// Legato without retrigger still stretches a pulse in flight.
		v.timer.Restart()
	}
	v.lastNote = note
	v.logger.Debug("voice: note on", "note", midi.NoteName(note), "velocity", velocity, "code", code)
}

// NoteOff releases the voice if note is the last note played. There is no
// upper range check; a note above the table can never be the last note.
func (v *Voice) NoteOff(note uint8) {
	if note < v.table.Lowest() || note != v.lastNote {
		return
	}
	v.setGate(false)
	v.setTrigger(false)
	v.timer.Disarm()
	v.writeVelocity(0)
	v.logger.Debug("voice: note off", "note", midi.NoteName(note))
}

// PitchBend writes the bend CV for the pitch-bend MSB.
func (v *Voice) PitchBend(value uint8) {
	v.writeBend(v.bend.Code(value))
}

// ModWheel passes the controller value to the 8-bit modulation output
// unscaled.
func (v *Voice) ModWheel(value uint8) {
	v.modCode = value
	v.dac.Write8(ModChannel, value)
}

// Tick advances the trigger pulse by one control-loop pass and drops the
// trigger line when it expires.
func (v *Voice) Tick() {
	if v.timer.Advance() {
		v.setTrigger(false)
	}
}

// Release forces the voice idle regardless of the last note.
func (v *Voice) Release() {
	v.setGate(false)
	v.setTrigger(false)
	v.timer.Disarm()
	v.writeVelocity(0)
	v.logger.Debug("voice: released")
}

// Sounding reports whether the gate is high.
func (v *Voice) Sounding() bool { return v.gate }

// State returns a snapshot of the voice.
func (v *Voice) State() State {
	return State{
		Gate:         v.gate,
		Trigger:      v.trigger,
		LastNote:     v.lastNote,
		Pitch:        v.pitchCode,
		Bend:         v.bendCode,
		Mod:          v.modCode,
		Velocity:     v.velocity,
		TimerArmed:   v.timer.Armed(),
		TimerElapsed: v.timer.Elapsed(),
	}
}

func (v *Voice) setGate(high bool) {
	v.gate = high
	v.out.Set(Gate, high)
}

func (v *Voice) setTrigger(high bool) {
	v.trigger = high
	v.out.Set(Trigger, high)
}

func (v *Voice) writePitch(code uint16) {
	v.pitchCode = code
	v.dac.Write12(PitchChannel, code)
}

func (v *Voice) writeBend(code uint16) {
	v.bendCode = code
	v.dac.Write12(BendChannel, code)
}

func (v *Voice) writeVelocity(vel uint8) {
	v.velocity = vel
	v.dac.Write8(VelocityChannel, vel)
}
