package voice

// DefaultPulseTicks is the trigger length in control-loop passes.
const DefaultPulseTicks uint16 = 254

// PulseTimer bounds the trigger pulse. It counts control-loop passes, not
// wall-clock time, so the pulse length follows the loop rate.
type PulseTimer struct {
	armed    bool
	elapsed  uint16
	duration uint16
}

// NewPulseTimer returns a disarmed timer that expires after duration passes.
// A zero duration is treated as one pass.
func NewPulseTimer(duration uint16) PulseTimer {
	if duration == 0 {
		duration = 1
	}
	return PulseTimer{duration: duration}
}

// Arm starts (or restarts) the pulse from zero.
func (p *PulseTimer) Arm() {
	p.armed = true
	p.elapsed = 0
}

// Restart zeroes the elapsed count without changing whether it is armed.
func (p *PulseTimer) Restart() { p.elapsed = 0 }

// Disarm stops the timer and clears the elapsed count.
func (p *PulseTimer) Disarm() {
	p.armed = false
	p.elapsed = 0
}

// Advance counts one pass and reports whether the pulse expired on it.
// Expiry disarms the timer.
func (p *PulseTimer) Advance() bool {
	if !p.armed {
		return false
	}
	p.elapsed++
	if p.elapsed < p.duration {
		return false
	}
	p.Disarm()
	return true
}

// Armed reports whether a pulse is in flight.
func (p *PulseTimer) Armed() bool { return p.armed }

// Elapsed is the number of passes counted since the last (re)start.
func (p *PulseTimer) Elapsed() uint16 { return p.elapsed }

// Duration is the pulse length in passes.
func (p *PulseTimer) Duration() uint16 { return p.duration }
