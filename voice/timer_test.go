package voice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chase3718/midicv/voice"
)

func TestPulseTimerExpiresOnce(t *testing.T) {
	p := voice.NewPulseTimer(voice.DefaultPulseTicks)
	assert.False(t, p.Advance(), "disarmed timer never expires")

	p.Arm()
	for i := 1; i < int(voice.DefaultPulseTicks); i++ {
		assert.False(t, p.Advance(), "tick %d", i)
	}
	assert.True(t, p.Advance())
	assert.False(t, p.Armed())
	assert.Equal(t, uint16(0), p.Elapsed())
	assert.False(t, p.Advance())
}

func TestPulseTimerRearm(t *testing.T) {
	p := voice.NewPulseTimer(10)
	p.Arm()
	for i := 0; i < 9; i++ {
		p.Advance()
	}
	p.Arm()
	assert.Equal(t, uint16(0), p.Elapsed())
	for i := 0; i < 9; i++ {
		assert.False(t, p.Advance())
	}
	assert.True(t, p.Advance())
}

func TestPulseTimerRestartKeepsArmedState(t *testing.T) {
	p := voice.NewPulseTimer(10)
	p.Restart()
	assert.False(t, p.Armed())

	p.Arm()
	p.Advance()
	p.Advance()
	p.Restart()
	assert.True(t, p.Armed())
	assert.Equal(t, uint16(0), p.Elapsed())

	p.Disarm()
	assert.False(t, p.Armed())
}
