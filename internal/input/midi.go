// internal/input/midi.go
package input

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const (
	// AnyNote accepts every note as the key
	AnyNote = -1
	// sustainPedal is the damper pedal controller; values >= 64 are down
	sustainPedal = 64
)

// ErrNoMIDIInput indicates no matching MIDI input was found
var ErrNoMIDIInput = errors.New("no matching MIDI input")

// MIDIConfig holds MIDI key configuration.
type MIDIConfig struct {
	// Port selects the first input whose name contains this text; empty picks the first input
	Port string
	// Note is the key note number, or AnyNote
	Note int
}

// MIDIKey treats a held note or the sustain pedal as the key.
type MIDIKey struct {
	note int

	mu    sync.Mutex
	held  map[uint8]bool
	pedal bool

	drv  *rtmididrv.Driver
	stop func()
}

func newMIDIKey(note int) *MIDIKey {
	return &MIDIKey{note: note, held: make(map[uint8]bool)}
}

// OpenMIDI connects to a MIDI input and starts listening.
func OpenMIDI(cfg MIDIConfig) (*MIDIKey, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	in, ok := pickInput(ins, cfg.Port)
	if !ok {
		drv.Close()
		return nil, fmt.Errorf("%w: %q", ErrNoMIDIInput, cfg.Port)
	}

	k := newMIDIKey(cfg.Note)
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		k.handle(msg)
	})
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("listen to %s: %w", in.String(), err)
	}
	k.drv = drv
	k.stop = stop
	slog.Info("midi key opened", "device", in.String(), "note", cfg.Note)
	return k, nil
}

func pickInput(ins []drivers.In, name string) (drivers.In, bool) {
	for _, in := range ins {
		if name == "" || strings.Contains(in.String(), name) {
			return in, true
		}
	}
	return nil, false
}

// handle updates key state from one MIDI message.
func (k *MIDIKey) handle(msg midi.Message) {
	var channel, key, velocity, controller, value uint8

	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		if k.accepts(key) {
			k.held[key] = true
		}
	case msg.GetNoteEnd(&channel, &key):
		delete(k.held, key)
	case msg.GetControlChange(&channel, &controller, &value):
		if controller == sustainPedal {
			k.pedal = value >= 64
		}
	}
}

func (k *MIDIKey) accepts(key uint8) bool {
	return k.note == AnyNote || int(key) == k.note
}

// Pressed implements keyer.Key.
func (k *MIDIKey) Pressed() (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pedal || len(k.held) > 0, nil
}

// Close stops listening and closes the driver.
func (k *MIDIKey) Close() error {
	if k.stop != nil {
		k.stop()
	}
	if k.drv != nil {
		k.drv.Close()
	}
	slog.Info("midi key closed")
	return nil
}

// ListMIDIInputs returns the names of the available MIDI inputs.
func ListMIDIInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}
