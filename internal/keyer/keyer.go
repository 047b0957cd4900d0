// internal/keyer/keyer.go
// Package keyer runs the polling control loop between a key, the decode
// session, a character display and a sidetone.
package keyer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
)

const (
	// DefaultPollInterval is how often the key is sampled
	DefaultPollInterval = 2 * time.Millisecond
	// DefaultBanner is shown at startup
	DefaultBanner = "READY"
	// DefaultSelfTest is played at startup
	DefaultSelfTest = "SOS"
)

var (
	// ErrSessionActive indicates playback was requested during a decode session
	ErrSessionActive = errors.New("cannot play while a session is active")
	// ErrKeyRequired indicates a key input is required
	ErrKeyRequired = errors.New("key is required")
	// ErrDisplayRequired indicates a display is required
	ErrDisplayRequired = errors.New("display is required")
	// ErrInvalidPollInterval indicates the poll interval must be positive
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
)

// Key is a single momentary input.
type Key interface {
	// Pressed samples the current key state
	Pressed() (bool, error)
}

// Sounder gives immediate feedback of the raw key state.
type Sounder interface {
	SetTone(on bool)
}

// Display is a two-row character display. All calls are idempotent.
type Display interface {
	Write(row cw.Row, col int, text string)
	Clear(row cw.Row)
	ClearAll()
}

// DecodeCallback receives decoded characters and word spaces as they happen.
// An idle timeout is reported as '\n'. Must be non-blocking and fast.
type DecodeCallback func(r rune)

// Config holds keyer configuration.
type Config struct {
	Session      cw.SessionConfig
	PollInterval time.Duration
	// Banner is written on startup; empty disables it
	Banner string
	// SelfTest is played on startup; empty disables it
	SelfTest string
}

// DefaultConfig returns the standard 16x2 keyer configuration.
func DefaultConfig() Config {
	return Config{
		Session:      cw.SessionConfig{Timings: cw.DefaultTimings(), Width: cw.DefaultWidth},
		PollInterval: DefaultPollInterval,
		Banner:       DefaultBanner,
		SelfTest:     DefaultSelfTest,
	}
}

// Keyer owns the decode session. It is driven from a single goroutine.
type Keyer struct {
	config  Config
	key     Key
	display Display
	sounder Sounder
	clock   Clock
	logger  *slog.Logger
	session *cw.Session

	down     bool
	onDecode DecodeCallback
}

// Option configures a Keyer.
type Option func(*Keyer)

// WithSounder sets the sidetone output.
func WithSounder(s Sounder) Option {
	return func(k *Keyer) { k.sounder = s }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(k *Keyer) { k.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(k *Keyer) { k.logger = l }
}

// WithDecodeCallback sets the decode callback.
func WithDecodeCallback(cb DecodeCallback) Option {
	return func(k *Keyer) { k.onDecode = cb }
}

// New creates a keyer.
func New(cfg Config, key Key, display Display, opts ...Option) (*Keyer, error) {
	if key == nil {
		return nil, ErrKeyRequired
	}
	if display == nil {
		return nil, ErrDisplayRequired
	}
	if cfg.PollInterval <= 0 {
		return nil, ErrInvalidPollInterval
	}
	session, err := cw.NewSession(cfg.Session)
	if err != nil {
		return nil, err
	}

	k := &Keyer{
		config:  cfg,
		key:     key,
		display: display,
		sounder: Silent{},
		clock:   NewSystemClock(),
		logger:  slog.Default(),
		session: session,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Greet writes the banner: its Morse code on the symbol row, the plain text on the text row.
func (k *Keyer) Greet() {
	if k.config.Banner == "" {
		return
	}
	k.display.ClearAll()
	k.display.Write(cw.SymbolRow, 0, cw.EncodeText(k.config.Banner, ""))
	k.display.Write(cw.TextRow, 0, k.config.Banner)
}

// SelfTest plays the configured self-test phrase on the sounder.
func (k *Keyer) SelfTest(ctx context.Context) error {
	if k.config.SelfTest == "" {
		return nil
	}
	return k.Play(ctx, k.config.SelfTest)
}

// Play keys text on the sounder, blocking until done or ctx is cancelled.
// It refuses to run while a decode session is active.
func (k *Keyer) Play(ctx context.Context, text string) error {
	if k.session.State().Active {
		return ErrSessionActive
	}
	defer k.sounder.SetTone(false)

	k.logger.Debug("playing", "text", text)
	for _, e := range k.config.Session.Timings.EncodeMessage(text) {
		k.sounder.SetTone(true)
		if err := k.clock.Sleep(ctx, e.Duration); err != nil {
			return err
		}
		k.sounder.SetTone(false)
		if err := k.clock.Sleep(ctx, e.GapAfter); err != nil {
			return err
		}
	}
	return nil
}

// Start greets, plays the self-test and then runs the control loop.
func (k *Keyer) Start(ctx context.Context) error {
	k.Greet()
	if err := k.SelfTest(ctx); err != nil {
		return fmt.Errorf("self-test: %w", err)
	}
	return k.Run(ctx)
}

// Run polls the key until ctx is cancelled. It returns ctx.Err() on
// cancellation and an error if the key cannot be sampled.
func (k *Keyer) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.config.PollInterval)
	defer ticker.Stop()
	defer k.sounder.SetTone(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pressed, err := k.key.Pressed()
			if err != nil {
				return fmt.Errorf("sample key: %w", err)
			}
			k.Poll(pressed, k.clock.Now())
		}
	}
}

// Poll feeds one key sample taken at now. Edges become press and release
// events; anything else is a tick.
func (k *Keyer) Poll(pressed bool, now cw.Millis) {
	var ev cw.Event
	switch {
	case pressed && !k.down:
		k.down = true
		k.sounder.SetTone(true)
		ev = cw.MarkStart(now)
	case !pressed && k.down:
		k.down = false
		k.sounder.SetTone(false)
		ev = cw.MarkEnd(now)
	case pressed:
		return
	default:
		ev = cw.Tick(now)
	}

	wasActive := k.session.State().Active
	k.apply(k.session.Handle(ev))
	if !wasActive && k.session.State().Active {
		k.logger.Debug("session started")
	}
}

// Reset discards the session in progress.
func (k *Keyer) Reset() {
	k.apply(k.session.Reset())
}

// State returns the current session state.
func (k *Keyer) State() cw.State {
	return k.session.State()
}

func (k *Keyer) apply(cmds []cw.Command) {
	for _, c := range cmds {
		switch c.Op {
		case cw.OpWrite:
			k.display.Write(c.Row, c.Col, c.Text)
		case cw.OpClear:
			k.display.Clear(c.Row)
		case cw.OpClearAll:
			k.display.ClearAll()
		case cw.OpDecoded:
			k.logger.Debug("decoded", "char", c.Text)
			k.emit([]rune(c.Text)...)
		case cw.OpSessionEnd:
			k.logger.Debug("session idle, reset")
			k.emit('\n')
		}
	}
}

func (k *Keyer) emit(rs ...rune) {
	if k.onDecode == nil {
		return
	}
	for _, r := range rs {
		k.onDecode(r)
	}
}

// Silent is a Sounder that does nothing.
type Silent struct{}

// SetTone implements Sounder.
func (Silent) SetTone(bool) {}

// Sounders fans tone changes out to several sounders.
type Sounders []Sounder

// SetTone implements Sounder.
func (s Sounders) SetTone(on bool) {
	for _, snd := range s {
		snd.SetTone(on)
	}
}
