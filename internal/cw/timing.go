// internal/cw/timing.go
package cw

import (
	"errors"
	"time"
)

// Morse timing ratios, in units of the dot length
const (
	// DashRatio is the hold time of a dash. Presses this long or longer are dashes.
	DashRatio = 3
	// ElementGapRatio is the silence between marks of one character
	ElementGapRatio = 1
	// CharacterGapRatio is the silence that ends a character
	CharacterGapRatio = 3
	// WordGapRatio is the silence that ends a word
	WordGapRatio = 7
	// IdleWordGaps is the number of word gaps of silence that ends a session
	IdleWordGaps = 3
)

// Defaults for the base unit and the press debounce
const (
	DefaultDotLength = 200 * time.Millisecond
	DefaultDebounce  = 20 * time.Millisecond
)

var (
	// ErrInvalidDotLength indicates the dot length must be positive
	ErrInvalidDotLength = errors.New("dot length must be positive")
	// ErrInvalidDebounce indicates debounce must be non-negative and shorter than a dot
	ErrInvalidDebounce = errors.New("debounce must be non-negative and shorter than the dot length")
)

// Millis is a wrapping millisecond timestamp, like a microcontroller uptime counter.
// Compare timestamps only through Since; raw ordering is meaningless across a wrap.
type Millis uint32

// Since returns the time elapsed from start to t. The unsigned subtraction stays
// correct when the counter wraps between the two readings, as long as the true
// interval is under 2^32 ms (about 49.7 days).
func (t Millis) Since(start Millis) time.Duration {
	return time.Duration(uint32(t-start)) * time.Millisecond
}

// Add returns t advanced by d, wrapping.
func (t Millis) Add(d time.Duration) Millis {
	return t + Millis(uint32(d/time.Millisecond))
}

// Mark is the classification of one key press.
type Mark uint8

const (
	// MarkNone is a press too short to be deliberate
	MarkNone Mark = iota
	MarkDot
	MarkDash
)

// Symbol returns the display symbol for the mark, or 0 for MarkNone.
func (m Mark) Symbol() byte {
	switch m {
	case MarkDot:
		return Dot
	case MarkDash:
		return Dash
	}
	return 0
}

func (m Mark) String() string {
	switch m {
	case MarkDot:
		return "DOT"
	case MarkDash:
		return "DASH"
	}
	return "NONE"
}

// GapMode is the furthest boundary reached by the current silence.
// Modes only move forward: Element, Character, Word, Idle.
type GapMode uint8

const (
	GapElement GapMode = iota
	GapCharacter
	GapWord
	GapIdle
)

func (g GapMode) String() string {
	switch g {
	case GapElement:
		return "ELEMENT"
	case GapCharacter:
		return "CHARACTER"
	case GapWord:
		return "WORD"
	}
	return "IDLE"
}

// Timings holds every threshold, all derived from one dot length.
type Timings struct {
	Dot          time.Duration
	Dash         time.Duration
	ElementGap   time.Duration
	CharacterGap time.Duration
	WordGap      time.Duration
	Idle         time.Duration
	Debounce     time.Duration
}

// NewTimings derives the thresholds from the dot length.
// The debounce is independent of the dot but must be shorter than it.
func NewTimings(dot, debounce time.Duration) (Timings, error) {
	if dot < time.Millisecond {
		return Timings{}, ErrInvalidDotLength
	}
	if debounce < 0 || debounce >= dot {
		return Timings{}, ErrInvalidDebounce
	}
	word := WordGapRatio * dot
	return Timings{
		Dot:          dot,
		Dash:         DashRatio * dot,
		ElementGap:   ElementGapRatio * dot,
		CharacterGap: CharacterGapRatio * dot,
		WordGap:      word,
		Idle:         IdleWordGaps * word,
		Debounce:     debounce,
	}, nil
}

// DefaultTimings returns the timings for DefaultDotLength and DefaultDebounce.
func DefaultTimings() Timings {
	t, _ := NewTimings(DefaultDotLength, DefaultDebounce)
	return t
}

// ClassifyMark classifies a press by how long the key was held.
func (t Timings) ClassifyMark(elapsed time.Duration) Mark {
	switch {
	case elapsed < t.Debounce:
		return MarkNone
	case elapsed >= t.Dash:
		return MarkDash
	default:
		return MarkDot
	}
}

// ClassifyGap returns the next gap mode for a silence of the given length.
// It advances at most one boundary per call and never moves backward: a word
// boundary is only reachable from Character, a character boundary only from
// Element. Idle is reached from any mode.
func (t Timings) ClassifyGap(elapsed time.Duration, prev GapMode) GapMode {
	switch {
	case elapsed >= t.Idle:
		return GapIdle
	case elapsed >= t.WordGap && prev == GapCharacter:
		return GapWord
	case elapsed >= t.CharacterGap && prev == GapElement:
		return GapCharacter
	default:
		return prev
	}
}
