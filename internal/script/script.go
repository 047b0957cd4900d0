// internal/script/script.go
// Package script replays recorded or generated key timings through a keyer
// on a virtual clock, so decoding can be reproduced without hardware.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
)

var (
	// ErrEmptyScript indicates a script has nothing to key
	ErrEmptyScript = errors.New("script has no presses")
	// ErrInvalidPress indicates a press needs either a hold time or text, not both
	ErrInvalidPress = errors.New("press needs a positive hold or text")
)

// Duration is a time.Duration written as "200ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Press is one entry of a script. A press either holds the key for Hold,
// or keys Text at the configured speed. Gap is the silence that follows.
type Press struct {
	Hold Duration `toml:"hold"`
	Gap  Duration `toml:"gap"`
	Text string   `toml:"text"`
}

// Script is a replay file.
//
//	start = 4294967000   # optional clock start, in milliseconds
//	tail = "2s"          # optional silence after the last press
//
//	[[press]]
//	hold = "600ms"
//	gap = "200ms"
//
//	[[press]]
//	text = "CQ"
type Script struct {
	Start   uint32   `toml:"start"`
	Tail    Duration `toml:"tail"`
	Presses []Press  `toml:"press"`
}

// Validate checks every press.
func (s Script) Validate() error {
	if len(s.Presses) == 0 {
		return ErrEmptyScript
	}
	var errs []error
	for i, p := range s.Presses {
		hasHold := p.Hold.Duration > 0
		hasText := p.Text != ""
		if hasHold == hasText || p.Hold.Duration < 0 || p.Gap.Duration < 0 {
			errs = append(errs, fmt.Errorf("press %d: %w", i+1, ErrInvalidPress))
		}
	}
	return errors.Join(errs...)
}

// Load reads and validates a script file.
func Load(path string) (Script, error) {
	var s Script
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Script{}, fmt.Errorf("decode script %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, fmt.Errorf("script %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script from TOML text.
func Parse(data string) (Script, error) {
	var s Script
	if _, err := toml.Decode(data, &s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

// FromText builds a script keying text as a single press.
func FromText(text string) Script {
	return Script{Presses: []Press{{Text: text}}}
}

// Write saves a script as TOML.
func Write(path string, s Script) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create script: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode script: %w", err)
	}
	return f.Close()
}

// Expand flattens text presses into timed key holds using t. A text press
// without an explicit gap ends with a word gap.
func (s Script) Expand(t cw.Timings) []Press {
	var out []Press
	for _, p := range s.Presses {
		if p.Text == "" {
			out = append(out, p)
			continue
		}
		elements := t.EncodeMessage(p.Text)
		for i, e := range elements {
			gap := e.GapAfter
			if i == len(elements)-1 {
				gap = t.WordGap
				if p.Gap.Duration > 0 {
					gap = p.Gap.Duration
				}
			}
			out = append(out, Press{Hold: Duration{e.Duration}, Gap: Duration{gap}})
		}
	}
	return out
}

// Player drives a keyer sample by sample. The keyer must have been created
// with the same clock.
type Player struct {
	keyer   *keyer.Keyer
	clock   *keyer.VirtualClock
	poll    time.Duration
	timings cw.Timings
}

// NewPlayer creates a player sampling every poll interval.
func NewPlayer(k *keyer.Keyer, clock *keyer.VirtualClock, cfg keyer.Config) *Player {
	return &Player{keyer: k, clock: clock, poll: cfg.PollInterval, timings: cfg.Session.Timings}
}

// Play keys the script. Without an explicit tail it keeps sampling long
// enough for the final character and word space to be decoded.
func (p *Player) Play(ctx context.Context, s Script) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for _, press := range s.Expand(p.timings) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.hold(true, press.Hold.Duration)
		// Sample through the end of the gap so a boundary landing exactly
		// on it is seen before the next press.
		p.hold(false, press.Gap.Duration+p.poll)
	}

	tail := s.Tail.Duration
	if tail <= 0 {
		tail = p.timings.WordGap + 2*p.poll
	}
	p.hold(false, tail)
	return ctx.Err()
}

// hold samples the key in one state for at least d.
func (p *Player) hold(pressed bool, d time.Duration) {
	steps := int((d + p.poll - 1) / p.poll)
	for i := 0; i < steps; i++ {
		p.keyer.Poll(pressed, p.clock.Now())
		p.clock.Advance(p.poll)
	}
}

// released is a key that is never pressed. The player samples on its behalf.
type released struct{}

func (released) Pressed() (bool, error) { return false, nil }

// Replay creates a keyer on a virtual clock starting at s.Start, then plays s.
func Replay(ctx context.Context, cfg keyer.Config, display keyer.Display, s Script, opts ...keyer.Option) error {
	clock := keyer.NewVirtualClock(cw.Millis(s.Start))
	opts = append(opts, keyer.WithClock(clock))
	k, err := keyer.New(cfg, released{}, display, opts...)
	if err != nil {
		return err
	}
	return NewPlayer(k, clock, cfg).Play(ctx, s)
}
