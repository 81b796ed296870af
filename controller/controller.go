// Package controller runs the two execution contexts of the MIDI-to-CV
// converter: a byte handler that assembles and dispatches messages as bytes
// arrive, and a control loop that reads the channel-select input and
// advances the trigger pulse once per pass.
//
// Byte handling and loop passes never interleave: both take the same lock,
// so the voice sees the same serialized order it would on a single core
// where the receive interrupt runs to completion.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/chase3718/midicv/midi"
	"github.com/chase3718/midicv/voice"
)

// Selector reads the channel-select input.
type Selector interface {
	ReadSelect() bool
}

// FixedSelect is a Selector that always reports the same level.
type FixedSelect bool

func (f FixedSelect) ReadSelect() bool { return bool(f) }

// Config maps the channel-select input to a MIDI channel and sets the loop
// rate.
type Config struct {
	ChannelLow  uint8 // 0-based channel when the select input is low
	ChannelHigh uint8 // 0-based channel when the select input is high
	Tick        time.Duration
}

// Snapshot is the controller state exposed to monitors.
type Snapshot struct {
	voice.State
	Channel  uint8
	Messages uint64
	Dropped  uint64
	Passes   uint64
}

// Controller owns the assembler and the voice.
type Controller struct {
	mu      sync.Mutex
	asm     midi.Assembler
	voice   *voice.Voice
	sel     Selector
	cfg     Config
	channel uint8
	logger  *slog.Logger

	messages uint64
	dropped  uint64
	passes   uint64
}

// New builds a controller around v. The voice should already be Init'ed.
func New(cfg Config, v *voice.Voice, sel Selector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if sel == nil {
		sel = FixedSelect(false)
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 40 * time.Microsecond
	}
	return &Controller{
		voice:   v,
		sel:     sel,
		cfg:     cfg,
		channel: cfg.ChannelLow,
		logger:  logger,
	}
}

// HandleByte feeds one received byte. Completed messages on the configured
// channel are applied to the voice before it returns.
func (c *Controller) HandleByte(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handleByte(b)
}

// HandleBytes feeds bs in order as one critical section.
func (c *Controller) HandleBytes(bs []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range bs {
		c.handleByte(b)
	}
}

func (c *Controller) handleByte(b byte) {
	m, ok := c.asm.Feed(b)
	if !ok {
		return
	}
	c.messages++
	applied := midi.Dispatch(m, c.channel, c.voice)
	if !applied {
		c.dropped++
	}
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	rendered := gomidi.Message(m.Bytes()).String()
	if applied {
		c.logger.Debug("controller: message applied", "msg", rendered)
	} else {
		c.logger.Debug("controller: message ignored", "msg", rendered, "channel", c.channel)
	}
}

// Step runs one control-loop pass: read the channel select, then advance
// the trigger pulse.
func (c *Controller) Step() {
	high := c.sel.ReadSelect()

	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.cfg.ChannelLow
	if high {
		ch = c.cfg.ChannelHigh
	}
	if ch != c.channel {
		c.logger.Info("controller: channel changed", "channel", ch+1)
		c.channel = ch
	}
	c.voice.Tick()
	c.passes++
}

// Run calls Step every tick until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	c.logger.Info("controller: loop running", "tick", c.cfg.Tick, "channel", c.Channel()+1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Step()
		}
	}
}

// Release forces the voice idle, e.g. when the MIDI source disappears and
// no Note Off will ever arrive.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voice.Release()
	c.asm.Reset()
	c.logger.Warn("controller: voice released")
}

// Channel returns the 0-based channel currently listened to.
func (c *Controller) Channel() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Snapshot returns a copy of the controller and voice state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:    c.voice.State(),
		Channel:  c.channel,
		Messages: c.messages,
		Dropped:  c.dropped,
		Passes:   c.passes,
	}
}
