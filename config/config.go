// Package config loads the controller configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chase3718/midicv/bridge"
	"github.com/chase3718/midicv/voice"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// VoiceConfig holds the note range, tables and trigger behaviour.
type VoiceConfig struct {
	LowestNote         uint8    `yaml:"lowest_note"`
	HighestNote        uint8    `yaml:"highest_note"`
	VoltageTable       []uint16 `yaml:"voltage_table"`
	PulseDurationTicks uint16   `yaml:"pulse_duration_ticks"`
	Retrigger          bool     `yaml:"retrigger"`
	BendBias           uint16   `yaml:"bend_bias"`
}

// ChannelsConfig maps the channel-select input to a 0-based MIDI channel.
type ChannelsConfig struct {
	Low  uint8 `yaml:"low"`
	High uint8 `yaml:"high"`
}

// LoopConfig sets the control-loop pass interval.
type LoopConfig struct {
	Tick time.Duration `yaml:"tick"`
}

// BridgeConfig describes the serial link to the DAC/gate MCU.
type BridgeConfig struct {
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	SelectLine string `yaml:"select_line"`
}

// MIDIConfig selects the MIDI input.
type MIDIConfig struct {
	Preferred    []string      `yaml:"preferred,omitempty"`
	Excluded     []string      `yaml:"excluded,omitempty"`
	SerialDevice string        `yaml:"serial_device,omitempty"`
	Rescan       time.Duration `yaml:"rescan"`
}

// Config is the main configuration structure.
type Config struct {
	Voice    VoiceConfig    `yaml:"voice"`
	Channels ChannelsConfig `yaml:"channels"`
	Loop     LoopConfig     `yaml:"loop"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	MIDI     MIDIConfig     `yaml:"midi"`
}

// DefaultConfig returns the stock configuration: five octaves from C1,
// channel 16 with the select input low and 15 with it high.
func DefaultConfig() *Config {
	return &Config{
		Voice: VoiceConfig{
			LowestNote:         voice.DefaultLowestNote,
			HighestNote:        voice.DefaultHighestNote,
			VoltageTable:       voice.DefaultCodes(),
			PulseDurationTicks: voice.DefaultPulseTicks,
			Retrigger:          true,
			BendBias:           voice.OneVolt,
		},
		Channels: ChannelsConfig{Low: 15, High: 14},
		Loop:     LoopConfig{Tick: 40 * time.Microsecond},
		Bridge: BridgeConfig{
			Device:     "/dev/ttyACM0",
			Baud:       500000,
			SelectLine: string(bridge.SelectCTS),
		},
		MIDI: MIDIConfig{
			Excluded: []string{"Midi Through", "Through Port", "Dummy"},
			Rescan:   time.Second,
		},
	}
}

// Load reads the config at path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration, including the voltage table length
// against the note range.
func (c *Config) Validate() error {
	if _, err := c.Table(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Voice.PulseDurationTicks == 0 {
		return fmt.Errorf("%w: pulse_duration_ticks must be positive", ErrInvalid)
	}
	if c.Voice.BendBias > voice.MaxCode12-127 {
		return fmt.Errorf("%w: bend_bias %d leaves no room for bend", ErrInvalid, c.Voice.BendBias)
	}
	if c.Channels.Low > 15 || c.Channels.High > 15 {
		return fmt.Errorf("%w: channels must be 0-15", ErrInvalid)
	}
	if c.Loop.Tick <= 0 {
		return fmt.Errorf("%w: loop tick must be positive", ErrInvalid)
	}
	if _, err := bridge.ParseSelectLine(c.Bridge.SelectLine); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Table builds the note-to-code table.
func (c *Config) Table() (*voice.Table, error) {
	return voice.NewTable(c.Voice.LowestNote, c.Voice.HighestNote, c.Voice.VoltageTable)
}

// VoiceOptions builds the voice options.
func (c *Config) VoiceOptions() (voice.Config, error) {
	tbl, err := c.Table()
	if err != nil {
		return voice.Config{}, err
	}
	return voice.Config{
		Table:      tbl,
		PulseTicks: c.Voice.PulseDurationTicks,
		Retrigger:  c.Voice.Retrigger,
		BendBias:   c.Voice.BendBias,
	}, nil
}
