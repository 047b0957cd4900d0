// internal/cw/session.go
package cw

import (
	"errors"
	"fmt"
)

// DefaultWidth is the column count of a 16x2 character display
const DefaultWidth = 16

// ErrInvalidWidth indicates the display width must be positive
var ErrInvalidWidth = errors.New("display width must be positive")

// Row selects a line of the two-row display.
type Row uint8

const (
	// SymbolRow shows the marks of the character being entered
	SymbolRow Row = iota
	// TextRow shows the decoded message
	TextRow
)

func (r Row) String() string {
	if r == SymbolRow {
		return "symbol"
	}
	return "text"
}

// EventKind identifies what happened on the key.
type EventKind uint8

const (
	// EventMarkStart is a press edge
	EventMarkStart EventKind = iota
	// EventMarkEnd is a release edge
	EventMarkEnd
	// EventTick is a poll with no edge
	EventTick
)

// Event is a timestamped key event fed to Step.
type Event struct {
	Kind EventKind
	At   Millis
}

// MarkStart returns a press event.
func MarkStart(at Millis) Event { return Event{Kind: EventMarkStart, At: at} }

// MarkEnd returns a release event.
func MarkEnd(at Millis) Event { return Event{Kind: EventMarkEnd, At: at} }

// Tick returns a poll event.
func Tick(at Millis) Event { return Event{Kind: EventTick, At: at} }

// Op is a display or notification command kind.
type Op uint8

const (
	// OpWrite writes Text on Row starting at Col
	OpWrite Op = iota
	// OpClear blanks Row
	OpClear
	// OpClearAll blanks the whole display
	OpClearAll
	// OpDecoded reports a decoded character or word space in Text
	OpDecoded
	// OpSessionEnd reports an idle timeout
	OpSessionEnd
)

// Command is an output produced by a transition. Display commands are idempotent.
type Command struct {
	Op   Op
	Row  Row
	Col  int
	Text string
}

// State is the complete decoder session state. The zero value is not a reset
// state; use NewState.
type State struct {
	Active        bool
	KeyDown       bool
	Buffer        Code
	MessageCursor int
	SymbolCursor  int
	GapMode       GapMode
	MarkStart     Millis
	GapStart      Millis
}

// NewState returns the reset state: inactive, empty buffer, cursors at 0, gap mode Idle.
func NewState() State {
	return State{GapMode: GapIdle}
}

// SessionConfig holds the fixed parameters of the state machine.
type SessionConfig struct {
	Timings Timings
	// Width is the display column count; cursors wrap to 0 here
	Width int
}

// Validate checks the configuration.
func (c SessionConfig) Validate() error {
	if c.Width < 1 {
		return ErrInvalidWidth
	}
	if _, err := NewTimings(c.Timings.Dot, c.Timings.Debounce); err != nil {
		return err
	}
	return nil
}

// Step is the decode transition function. It never fails: unknown codes decode
// to Unknown, sub-debounce presses are dropped and cursors wrap.
func Step(cfg SessionConfig, s State, ev Event) (State, []Command) {
	switch ev.Kind {
	case EventMarkStart:
		return markStart(s, ev.At)
	case EventMarkEnd:
		return markEnd(cfg, s, ev.At)
	case EventTick:
		return tick(cfg, s, ev.At)
	}
	return s, nil
}

func markStart(s State, at Millis) (State, []Command) {
	var cmds []Command
	if !s.Active {
		s = NewState()
		s.Active = true
		cmds = append(cmds, Command{Op: OpClearAll})
	}
	s.KeyDown = true
	s.MarkStart = at
	return s, cmds
}

func markEnd(cfg SessionConfig, s State, at Millis) (State, []Command) {
	if !s.KeyDown {
		return s, nil
	}
	s.KeyDown = false
	s.GapStart = at

	mark := cfg.Timings.ClassifyMark(at.Since(s.MarkStart))
	if mark == MarkNone || !s.Active {
		return s, nil
	}
	s.GapMode = GapElement

	// Overlong input is still a mark for gap timing, but never enters the buffer.
	if len(s.Buffer) >= MaxCodeLength {
		return s, nil
	}
	sym := string(mark.Symbol())
	s.Buffer += Code(sym)
	cmd := Command{Op: OpWrite, Row: SymbolRow, Col: s.SymbolCursor, Text: sym}
	s.SymbolCursor = advance(s.SymbolCursor, cfg.Width)
	return s, []Command{cmd}
}

func tick(cfg SessionConfig, s State, at Millis) (State, []Command) {
	if !s.Active || s.KeyDown {
		return s, nil
	}

	elapsed := at.Since(s.GapStart)
	if elapsed >= cfg.Timings.Idle {
		return NewState(), []Command{{Op: OpClearAll}, {Op: OpSessionEnd}}
	}

	next := cfg.Timings.ClassifyGap(elapsed, s.GapMode)
	if next == s.GapMode {
		return s, nil
	}
	s.GapMode = next

	var cmds []Command
	switch next {
	case GapCharacter:
		ch := string(Decode(s.Buffer))
		s.Buffer = ""
		cmds = append(cmds,
			Command{Op: OpWrite, Row: TextRow, Col: s.MessageCursor, Text: ch + " "},
			Command{Op: OpClear, Row: SymbolRow},
			Command{Op: OpDecoded, Text: ch},
		)
		s.MessageCursor = advance(s.MessageCursor, cfg.Width)
		s.SymbolCursor = 0
	case GapWord:
		cmds = append(cmds,
			Command{Op: OpWrite, Row: TextRow, Col: s.MessageCursor, Text: " "},
			Command{Op: OpDecoded, Text: " "},
		)
		s.MessageCursor = advance(s.MessageCursor, cfg.Width)
	}
	return s, cmds
}

// advance moves a cursor one column, wrapping to 0 at width.
func advance(col, width int) int {
	col++
	if col >= width {
		return 0
	}
	return col
}

// Session owns a State and applies events to it.
// It is not safe for concurrent use; the control loop is its only owner.
type Session struct {
	config SessionConfig
	state  State
}

// NewSession creates a session in the reset state.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	return &Session{config: cfg, state: NewState()}, nil
}

// Handle applies one event and returns the resulting commands.
func (s *Session) Handle(ev Event) []Command {
	var cmds []Command
	s.state, cmds = Step(s.config, s.state, ev)
	return cmds
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state
}

// Config returns the session configuration.
func (s *Session) Config() SessionConfig {
	return s.config
}

// Reset discards any input in progress and returns the clear command.
func (s *Session) Reset() []Command {
	s.state = NewState()
	return []Command{{Op: OpClearAll}}
}
