// internal/lcd/screen.go
// Package lcd emulates a character-cell display such as a 16x2 HD44780.
package lcd

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
)

// Geometry of the common 16x2 module
const (
	DefaultCols = 16
	DefaultRows = 2
)

var (
	// ErrInvalidCols indicates the column count must be positive
	ErrInvalidCols = errors.New("display columns must be positive")
	// ErrInvalidRows indicates the display needs a symbol row and a text row
	ErrInvalidRows = errors.New("display needs at least 2 rows")
)

// ChangeCallback receives a snapshot of all rows after every change.
// Called with the screen unlocked; must be non-blocking and fast.
type ChangeCallback func(rows []string)

// Screen is a fixed-size character buffer. Writes past the last column are
// truncated, rows outside the screen are ignored. Safe for concurrent use.
type Screen struct {
	cols int

	mu    sync.RWMutex
	cells [][]byte

	callbackPtr atomic.Pointer[ChangeCallback]
}

// New creates a blank screen.
func New(cols, rows int) (*Screen, error) {
	if cols < 1 {
		return nil, ErrInvalidCols
	}
	if rows < 2 {
		return nil, ErrInvalidRows
	}
	s := &Screen{cols: cols, cells: make([][]byte, rows)}
	for i := range s.cells {
		s.cells[i] = blank(cols)
	}
	return s, nil
}

// SetCallback sets the change callback. nil removes it.
func (s *Screen) SetCallback(cb ChangeCallback) {
	if cb == nil {
		s.callbackPtr.Store(nil)
	} else {
		s.callbackPtr.Store(&cb)
	}
}

// Write places text at col on row.
func (s *Screen) Write(row cw.Row, col int, text string) {
	s.mu.Lock()
	r := int(row)
	if r >= len(s.cells) || col < 0 || col >= s.cols {
		s.mu.Unlock()
		return
	}
	line := s.cells[r]
	for i := 0; i < len(text) && col+i < s.cols; i++ {
		line[col+i] = printable(text[i])
	}
	s.mu.Unlock()
	s.changed()
}

// Clear blanks one row.
func (s *Screen) Clear(row cw.Row) {
	s.mu.Lock()
	if int(row) >= len(s.cells) {
		s.mu.Unlock()
		return
	}
	s.cells[row] = blank(s.cols)
	s.mu.Unlock()
	s.changed()
}

// ClearAll blanks every row.
func (s *Screen) ClearAll() {
	s.mu.Lock()
	for i := range s.cells {
		s.cells[i] = blank(s.cols)
	}
	s.mu.Unlock()
	s.changed()
}

// Rows returns a copy of every row, padded to the full width.
func (s *Screen) Rows() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.cells))
	for i, line := range s.cells {
		out[i] = string(line)
	}
	return out
}

// Row returns one row with trailing blanks removed.
func (s *Screen) Row(row cw.Row) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(row) >= len(s.cells) {
		return ""
	}
	return strings.TrimRight(string(s.cells[row]), " ")
}

// Cols returns the display width.
func (s *Screen) Cols() int {
	return s.cols
}

// String renders the screen one row per line.
func (s *Screen) String() string {
	return strings.Join(s.Rows(), "\n")
}

func (s *Screen) changed() {
	if cb := s.callbackPtr.Load(); cb != nil {
		(*cb)(s.Rows())
	}
}

func blank(cols int) []byte {
	return []byte(strings.Repeat(" ", cols))
}

// printable maps bytes the display cannot show to a block.
func printable(b byte) byte {
	if b < 0x20 || b > 0x7e {
		return '#'
	}
	return b
}
