// Command midicv turns a MIDI note stream into pitch/velocity/mod/bend CV
// plus gate and trigger for a monophonic analog voice, driving the DACs and
// gate pins through a serial bridge MCU.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/chase3718/midicv/bridge"
	"github.com/chase3718/midicv/config"
	"github.com/chase3718/midicv/controller"
	"github.com/chase3718/midicv/dac"
	"github.com/chase3718/midicv/input"
	"github.com/chase3718/midicv/monitor"
	"github.com/chase3718/midicv/voice"
)

// -------------------- Logger --------------------

// logger is the package-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug, // include file:line in debug mode
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// -------------------- Hardware --------------------

// hardware is whatever carries SPI words, gate/trigger and the channel
// select: the serial bridge or, in dry-run mode, the log.
type hardware interface {
	dac.Bus
	voice.Outputs
	controller.Selector
}

func openHardware(cfg *config.Config, dryRun bool) (hardware, func(), error) {
	if dryRun {
		logger.Info("dry run: hardware writes are logged only")
		return &bridge.LogSink{Logger: logger}, func() {}, nil
	}
	sel, err := bridge.ParseSelectLine(cfg.Bridge.SelectLine)
	if err != nil {
		return nil, nil, err
	}
	p, err := bridge.Open(cfg.Bridge.Device, cfg.Bridge.Baud, sel, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}

// -------------------- MIDI in --------------------

// serialSource is a DIN-MIDI reader; *input.SerialReader satisfies it.
type serialSource interface {
	Run(ctx context.Context, onByte func(byte)) error
}

// byteSink is the controller side of the serial pump.
type byteSink interface {
	HandleByte(b byte)
	Release()
}

// pumpSerial feeds r into ctrl until ctx ends. A reader failure means no more
// MIDI can arrive, so the voice is released and the process is stopped with
// the failure as cause.
func pumpSerial(ctx context.Context, r serialSource, ctrl byteSink, stop context.CancelCauseFunc) {
	err := r.Run(ctx, ctrl.HandleByte)
	if err == nil {
		return
	}
	logger.Error("midi serial: reader stopped, shutting down", "err", err)
	ctrl.Release()
	stop(err)
}

// startInput connects the configured byte receiver to ctrl. It returns a
// func naming the current source for the monitor.
func startInput(ctx context.Context, stop context.CancelCauseFunc, wg *sync.WaitGroup, cfg *config.Config, ctrl *controller.Controller) (func() string, func(), error) {
	if dev := cfg.MIDI.SerialDevice; dev != "" {
		r, err := input.OpenSerial(dev, logger)
		if err != nil {
			return nil, nil, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pumpSerial(ctx, r, ctrl, stop)
		}()
		return func() string { return dev }, func() { _ = r.Close() }, nil
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return nil, nil, err
	}
	watcher := input.NewPortWatcher(drv, input.WatcherConfig{
		Preferred: cfg.MIDI.Preferred,
		Excluded:  cfg.MIDI.Excluded,
		Rescan:    cfg.MIDI.Rescan,
	}, ctrl.HandleBytes, func() {
		logger.Warn("midi: disconnect – releasing voice")
		ctrl.Release()
	}, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		watcher.Tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				watcher.Tick()
			}
		}
	}()
	device := func() string {
		name, _ := watcher.Connected()
		return name
	}
	return device, watcher.Close, nil
}

// -------------------- Main --------------------

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used if missing)")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	bridgeDev := flag.String("bridge", "", "bridge serial device (overrides config)")
	baud := flag.Int("baud", 0, "bridge baud rate (overrides config)")
	midiSerial := flag.String("midi-serial", "", "read DIN MIDI from this UART instead of a host MIDI port")
	dryRun := flag.Bool("dry-run", false, "log hardware writes instead of opening the bridge")
	showMonitor := flag.Bool("monitor", false, "show the live voice monitor")
	logPath := flag.String("log", "midicv.log", "log file used while the monitor is shown")
	flag.Parse()

	var logOut io.Writer = os.Stderr
	if *showMonitor {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			logger.Error("log file open failed", "path", *logPath, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	initLogger(logOut, *debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if *bridgeDev != "" {
		cfg.Bridge.Device = *bridgeDev
	}
	if *baud != 0 {
		cfg.Bridge.Baud = *baud
	}
	if *midiSerial != "" {
		cfg.MIDI.SerialDevice = *midiSerial
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, *dryRun, *showMonitor); err != nil {
		logger.Error("midicv failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, dryRun, showMonitor bool) error {
	opts, err := cfg.VoiceOptions()
	if err != nil {
		return err
	}
	logger.Info("midicv starting",
		"lowest_note", cfg.Voice.LowestNote,
		"highest_note", cfg.Voice.HighestNote,
		"pulse_ticks", cfg.Voice.PulseDurationTicks,
		"retrigger", cfg.Voice.Retrigger,
		"loop_tick", cfg.Loop.Tick,
	)

	hw, closeHW, err := openHardware(cfg, dryRun)
	if err != nil {
		return err
	}
	defer closeHW()

	v := voice.New(opts, dac.NewDriver(hw, logger), hw, logger)
	v.Init()

	ctrl := controller.New(controller.Config{
		ChannelLow:  cfg.Channels.Low,
		ChannelHigh: cfg.Channels.High,
		Tick:        cfg.Loop.Tick,
	}, v, hw, logger)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, stop := context.WithCancelCause(sigCtx)
	defer stop(nil)
	cancel := func() { stop(nil) }

	var wg sync.WaitGroup
	device, closeInput, err := startInput(ctx, stop, &wg, cfg, ctrl)
	if err != nil {
		return err
	}
	defer closeInput()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("control loop stopped", "err", err)
		}
	}()

	if showMonitor {
		if err := monitor.Run(ctx, ctrl, device); err != nil && ctx.Err() == nil {
			cancel()
			wg.Wait()
			return err
		}
		cancel()
	} else {
		logger.Info("running – waiting for MIDI")
		<-ctx.Done()
	}

	wg.Wait()
	ctrl.Release()
	logger.Info("midicv stopped")
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
