// Package input delivers raw MIDI bytes to the controller from a host MIDI
// port or a DIN-MIDI serial UART.
package input

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Driver is the part of a gomidi driver the watcher uses.
type Driver interface {
	Ins() ([]drivers.In, error)
	Close() error
}

// WatcherConfig selects which host MIDI inputs are auto-connected.
type WatcherConfig struct {
	// Preferred devices are picked first, in pattern order.
	Preferred []string
	// Excluded devices (virtual/system ports) are never connected.
	Excluded []string
	Rescan   time.Duration
}

// PortWatcher monitors available MIDI inputs and keeps a connection to the
// preferred device, handling hot-plug and hot-unplug.
//
// onBytes receives every message from the connected device, one wire
// message per call. onDisconnect is called (from a goroutine) when the
// active device is lost; callers should use it to release the voice.
type PortWatcher struct {
	mu           sync.Mutex
	drv          Driver
	cfg          WatcherConfig
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time
	logger       *slog.Logger

	onBytes      func([]byte)
	onDisconnect func()
}

// NewPortWatcher wraps drv. Call Close when done.
func NewPortWatcher(drv Driver, cfg WatcherConfig, onBytes func([]byte), onDisconnect func(), logger *slog.Logger) *PortWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Rescan <= 0 {
		cfg.Rescan = time.Second
	}
	return &PortWatcher{
		drv:          drv,
		cfg:          cfg,
		onBytes:      onBytes,
		onDisconnect: onDisconnect,
		logger:       logger,
	}
}

// Close shuts down the active MIDI connection and the driver.
func (w *PortWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	if err := w.drv.Close(); err != nil {
		w.logger.Warn("midi: driver close failed", "err", err)
	}
}

// Connected returns the name of the connected device, if any.
func (w *PortWatcher) Connected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedName, w.connected
}

// Tick should be called on a regular interval from the main loop. It scans
// for devices at most once per rescan interval, auto-connects to a preferred
// one and detects disappearances.
func (w *PortWatcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < w.cfg.Rescan {
		return
	}
	w.lastRescanAt = now

	inputs := w.listInputs()

	if w.connected {
		for _, n := range inputs {
			if n == w.selectedName {
				return
			}
		}
		w.logger.Warn("midi: device disappeared", "device", w.selectedName)
		w.closeConn()
		w.lastRescanAt = time.Time{} // rescan immediately next tick
		if w.onDisconnect != nil {
			go w.onDisconnect()
		}
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := w.pickPreferred(inputs)
	if !ok {
		w.logger.Debug("midi: no preferred device", "available", strings.Join(inputs, ", "))
		return
	}
	if err := w.openByName(cand); err != nil {
		w.logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

func (w *PortWatcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		w.logger.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		if matchesAny(name, w.cfg.Excluded) {
			w.logger.Debug("midi: input excluded", "device", name)
			continue
		}
		names = append(names, name)
	}
	w.logger.Debug("midi: inputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

func (w *PortWatcher) pickPreferred(inputs []string) (string, bool) {
	for _, pat := range w.cfg.Preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (w *PortWatcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *PortWatcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := gomidi.ListenTo(found, func(msg gomidi.Message, _ int32) {
		w.logger.Debug("midi: received", "msg", msg.String())
		w.onBytes([]byte(msg))
	}, gomidi.HandleError(func(listenErr error) {
		w.logger.Warn("midi: listener error", "device", name, "err", listenErr)
		// Must not call closeConn from within the listener goroutine, so
		// we dispatch to a new goroutine and re-acquire the mutex.
		go w.drop(name)
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	w.logger.Info("midi: connected", "device", name)
	return nil
}

func (w *PortWatcher) drop(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected || w.selectedName != name {
		return
	}
	w.closeConn()
	w.lastRescanAt = time.Time{}
	if w.onDisconnect != nil {
		go w.onDisconnect()
	}
}

func matchesAny(s string, patterns []string) bool {
	for _, pat := range patterns {
		if containsCI(s, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
