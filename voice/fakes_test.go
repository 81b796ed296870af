package voice_test

import (
	"fmt"

	"github.com/chase3718/midicv/voice"
)

// rig records every DAC write and line change a voice makes.
type rig struct {
	events []string
	lines  map[voice.Line]bool
}

func newRig() *rig {
	return &rig{lines: map[voice.Line]bool{}}
}

func (r *rig) Write12(ch voice.Channel, code uint16) {
	r.events = append(r.events, fmt.Sprintf("dac12 %d %d", ch, code))
}

func (r *rig) Write8(ch voice.Channel, code uint8) {
	r.events = append(r.events, fmt.Sprintf("dac8 %d %d", ch, code))
}

func (r *rig) Set(line voice.Line, high bool) {
	r.lines[line] = high
	r.events = append(r.events, fmt.Sprintf("%s %t", line, high))
}

func (r *rig) reset() { r.events = nil }

func (r *rig) count(prefix string) int {
	n := 0
	for _, e := range r.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func newVoice(r *rig, retrigger bool) *voice.Voice {
	cfg := voice.DefaultConfig()
	cfg.Retrigger = retrigger
	v := voice.New(cfg, r, r, nil)
	v.Init()
	r.reset()
	return v
}
