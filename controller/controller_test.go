package controller_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chase3718/midicv/controller"
	"github.com/chase3718/midicv/voice"
)

type hardware struct {
	mu      sync.Mutex
	lines   map[voice.Line]bool
	pitch   []uint16
	writes8 int
}

func (h *hardware) Write12(ch voice.Channel, code uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch == voice.PitchChannel {
		h.pitch = append(h.pitch, code)
	}
}

func (h *hardware) Write8(voice.Channel, uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes8++
}

func (h *hardware) Set(line voice.Line, high bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines[line] = high
}

func (h *hardware) line(l voice.Line) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lines[l]
}

type switchSelect struct{ high atomic.Bool }

func (s *switchSelect) ReadSelect() bool { return s.high.Load() }

func setup(t *testing.T) (*controller.Controller, *hardware, *switchSelect) {
	t.Helper()
	hw := &hardware{lines: map[voice.Line]bool{}}
	v := voice.New(voice.DefaultConfig(), hw, hw, nil)
	v.Init()
	hw.pitch = nil
	sel := &switchSelect{}
	c := controller.New(controller.Config{ChannelLow: 15, ChannelHigh: 14, Tick: time.Millisecond}, v, sel, nil)
	return c, hw, sel
}

func TestNoteOnOffThroughBytes(t *testing.T) {
	c, hw, _ := setup(t)

	c.HandleBytes([]byte{0x9F, 60, 100})
	assert.True(t, hw.line(voice.Gate))
	assert.True(t, hw.line(voice.Trigger))
	assert.Equal(t, []uint16{2458}, hw.pitch)

	// Running status Note On with velocity 0 releases the voice.
	c.HandleBytes([]byte{60, 0})
	assert.False(t, hw.line(voice.Gate))
	assert.False(t, hw.line(voice.Trigger))

	s := c.Snapshot()
	assert.Equal(t, uint64(2), s.Messages)
	assert.Equal(t, uint64(0), s.Dropped)
}

func TestRolloverThroughBytes(t *testing.T) {
	c, hw, _ := setup(t)
	c.HandleBytes([]byte{0x9F, 60, 100, 64, 100, 0x8F, 60, 0})

	s := c.Snapshot()
	assert.True(t, s.Gate)
	assert.Equal(t, uint8(64), s.LastNote)
	assert.Equal(t, uint16(2731), s.Pitch)

	c.HandleBytes([]byte{64, 0})
	assert.False(t, hw.line(voice.Gate))
}

func TestOffChannelIgnored(t *testing.T) {
	c, hw, _ := setup(t)
	c.HandleBytes([]byte{0x90, 60, 100, 0x9E, 60, 100})
	assert.False(t, hw.line(voice.Gate))
	assert.Equal(t, uint64(2), c.Snapshot().Dropped)
}

func TestRealtimeBytesInterleaved(t *testing.T) {
	c, hw, _ := setup(t)
	for _, b := range []byte{0xF8, 0x9F, 0xF8, 60, 0xFE, 100, 0xF8} {
		c.HandleByte(b)
	}
	assert.True(t, hw.line(voice.Gate))
}

func TestChannelSelect(t *testing.T) {
	c, hw, sel := setup(t)
	assert.Equal(t, uint8(15), c.Channel())

	sel.high.Store(true)
	c.Step()
	assert.Equal(t, uint8(14), c.Channel())

	c.HandleBytes([]byte{0x9F, 60, 100})
	assert.False(t, hw.line(voice.Gate))
	c.HandleBytes([]byte{0x9E, 60, 100})
	assert.True(t, hw.line(voice.Gate))
}

func TestStepExpiresTrigger(t *testing.T) {
	c, hw, _ := setup(t)
	c.HandleBytes([]byte{0x9F, 60, 100})
	for i := 1; i < int(voice.DefaultPulseTicks); i++ {
		c.Step()
	}
	assert.True(t, hw.line(voice.Trigger))
	c.Step()
	assert.False(t, hw.line(voice.Trigger))
	assert.True(t, hw.line(voice.Gate))
	assert.Equal(t, uint64(voice.DefaultPulseTicks), c.Snapshot().Passes)
}

func TestRelease(t *testing.T) {
	c, hw, _ := setup(t)
	c.HandleBytes([]byte{0x9F, 60, 100, 0x9F, 62})
	c.Release()
	assert.False(t, hw.line(voice.Gate))

	// The half-assembled message was discarded with the running status.
	c.HandleBytes([]byte{100, 60, 100})
	assert.False(t, hw.line(voice.Gate))
}

func TestRunStopsOnCancel(t *testing.T) {
	c, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Snapshot().Passes > 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestConcurrentBytesAndLoop(t *testing.T) {
	c, hw, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			note := byte(40 + i%20)
			c.HandleBytes([]byte{0x9F, note, 100})
			c.HandleBytes([]byte{0x8F, note, 0})
		}
	}()
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, uint64(400), s.Messages)
	assert.False(t, s.Gate)
	assert.False(t, hw.line(voice.Gate))
}

func TestDebugLogRendersMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hw := &hardware{lines: map[voice.Line]bool{}}
	v := voice.New(voice.DefaultConfig(), hw, hw, logger)
	c := controller.New(controller.Config{ChannelLow: 15, ChannelHigh: 14}, v, nil, logger)

	c.HandleBytes([]byte{0xCF, 5, 60, 0x9F, 60, 100})

	out := buf.String()
	assert.Contains(t, out, "controller: message ignored")
	assert.Contains(t, out, "ProgramChange")
	assert.Contains(t, out, "controller: message applied")
	assert.Contains(t, out, "NoteOn")
	assert.NotContains(t, out, "status=207")
}
