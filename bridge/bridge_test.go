package bridge

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/chase3718/midicv/dac"
	"github.com/chase3718/midicv/voice"
)

type fakeConn struct {
	written [][]byte
	bits    serial.ModemStatusBits
	bitsErr error
	err     error
	closed  bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

func (c *fakeConn) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	if c.bitsErr != nil {
		return nil, c.bitsErr
	}
	b := c.bits
	return &b, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestFrameEncode(t *testing.T) {
	f := SPIFrame(dac.CS12, dac.Word{0x79, 0x9A})
	// LEN=4, CKS = 4 ^ 0x20 ^ 0x01 ^ 0x79 ^ 0x9A
	assert.Equal(t, []byte{0xAA, 0x55, 0x04, 0x20, 0x01, 0x79, 0x9A, 0x04 ^ 0x20 ^ 0x01 ^ 0x79 ^ 0x9A}, f.Encode())

	f = LinesFrame(LineGate | LineTrigger)
	assert.Equal(t, []byte{0xAA, 0x55, 0x02, 0x21, 0x03, 0x02 ^ 0x21 ^ 0x03}, f.Encode())
}

func TestPortTransfer(t *testing.T) {
	c := &fakeConn{}
	p := newPort(c, "test", SelectNone, quietLogger())
	require.NoError(t, p.Transfer(dac.CS8, dac.Word{0xF6, 0x40}))
	require.Len(t, c.written, 1)
	assert.Equal(t, SPIFrame(dac.CS8, dac.Word{0xF6, 0x40}).Encode(), c.written[0])

	c.err = errors.New("device gone")
	err := p.Transfer(dac.CS8, dac.Word{0, 0})
	assert.ErrorContains(t, err, "device gone")
}

func TestPortLinesKeepShadow(t *testing.T) {
	c := &fakeConn{}
	p := newPort(c, "test", SelectNone, quietLogger())

	p.Set(voice.Gate, true)
	p.Set(voice.Trigger, true)
	p.Set(voice.Trigger, false)
	p.Set(voice.Gate, false)

	var masks []byte
	for _, w := range c.written {
		require.Len(t, w, 6)
		masks = append(masks, w[4])
	}
	assert.Equal(t, []byte{0x01, 0x03, 0x01, 0x00}, masks)
}

func TestPortLineWriteErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	c := &fakeConn{err: errors.New("broken pipe")}
	p := newPort(c, "test", SelectNone, slog.New(slog.NewTextHandler(&buf, nil)))
	p.Set(voice.Gate, true)
	assert.Contains(t, buf.String(), "bridge: line write failed")
	assert.Contains(t, buf.String(), "line=gate")
}

func TestPortReadSelect(t *testing.T) {
	c := &fakeConn{bits: serial.ModemStatusBits{CTS: true, DSR: false, DCD: true}}

	assert.False(t, newPort(c, "t", SelectNone, quietLogger()).ReadSelect())
	assert.True(t, newPort(c, "t", SelectCTS, quietLogger()).ReadSelect())
	assert.False(t, newPort(c, "t", SelectDSR, quietLogger()).ReadSelect())
	assert.True(t, newPort(c, "t", SelectDCD, quietLogger()).ReadSelect())
	assert.False(t, newPort(c, "t", SelectRI, quietLogger()).ReadSelect())

	c.bitsErr = errors.New("ioctl failed")
	assert.False(t, newPort(c, "t", SelectCTS, quietLogger()).ReadSelect())
}

func TestParseSelectLine(t *testing.T) {
	l, err := ParseSelectLine(" CTS ")
	require.NoError(t, err)
	assert.Equal(t, SelectCTS, l)

	l, err = ParseSelectLine("")
	require.NoError(t, err)
	assert.Equal(t, SelectNone, l)

	_, err = ParseSelectLine("rts")
	assert.Error(t, err)
}

func TestPortClose(t *testing.T) {
	c := &fakeConn{}
	p := newPort(c, "test", SelectNone, quietLogger())
	require.NoError(t, p.Close())
	assert.True(t, c.closed)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSink{Select: true, Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, s.Transfer(dac.CS12, dac.Word{0x70, 0x00}))
	s.Set(voice.Trigger, true)
	assert.True(t, s.ReadSelect())
	assert.Contains(t, buf.String(), "MCU SPI")
	assert.Contains(t, buf.String(), "chip=dac12")
	assert.Contains(t, buf.String(), "line=trigger")
}
