// internal/tui/bridge.go
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Bridge forwards keyer activity into a running program. Its methods match
// keyer.Sounder, keyer.DecodeCallback and lcd.ChangeCallback.
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge creates a bridge that sends to p.
func NewBridge(p *tea.Program) *Bridge {
	return &Bridge{send: p.Send}
}

// SetTone reports the key state.
func (b *Bridge) SetTone(on bool) {
	b.send(ToneMsg(on))
}

// Screen reports a display change.
func (b *Bridge) Screen(rows []string) {
	b.send(ScreenMsg{Rows: rows})
}

// Decoded reports a decoded character.
func (b *Bridge) Decoded(r rune) {
	b.send(DecodedMsg(r))
}

// Done reports that the control loop stopped.
func (b *Bridge) Done(err error) {
	b.send(DoneMsg{Err: err})
}
