package bridge

import (
	"log/slog"

	"github.com/chase3718/midicv/dac"
	"github.com/chase3718/midicv/voice"
)

// LogSink stands in for the bridge when no hardware is attached: every
// transfer and line change is logged instead of sent. Select is the fixed
// level reported for the channel-select input.
type LogSink struct {
	Select bool
	Logger *slog.Logger
}

var (
	_ dac.Bus       = (*LogSink)(nil)
	_ voice.Outputs = (*LogSink)(nil)
)

func (s *LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Transfer logs the word instead of shifting it out.
func (s *LogSink) Transfer(cs dac.ChipSelect, w dac.Word) error {
	s.logger().Info("MCU SPI", "chip", cs, "msb", w[0], "lsb", w[1])
	return nil
}

// Set logs the line change.
func (s *LogSink) Set(line voice.Line, high bool) {
	s.logger().Info("MCU LINE", "line", line, "high", high)
}

// ReadSelect reports the fixed Select level.
func (s *LogSink) ReadSelect() bool { return s.Select }
