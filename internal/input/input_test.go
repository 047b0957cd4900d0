package input

import (
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"
)

type fakePort struct {
	bits   *serial.ModemStatusBits
	err    error
	closed bool
}

func (p *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return p.bits, p.err
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		want    Line
		wantErr bool
	}{
		{"cts", LineCTS, false},
		{"CTS", LineCTS, false},
		{" dsr ", LineDSR, false},
		{"dcd", LineDCD, false},
		{"Ri", LineRI, false},
		{"dtr", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLine(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOpenSerial_Validation(t *testing.T) {
	if _, err := OpenSerial(SerialConfig{Line: LineCTS}); !errors.Is(err, ErrPortRequired) {
		t.Errorf("OpenSerial() without port error = %v, want %v", err, ErrPortRequired)
	}
	if _, err := OpenSerial(SerialConfig{Port: "/dev/null", Line: "dtr"}); !errors.Is(err, ErrInvalidLine) {
		t.Errorf("OpenSerial() with bad line error = %v, want %v", err, ErrInvalidLine)
	}
}

func TestSerialKey_Pressed(t *testing.T) {
	tests := []struct {
		name   string
		bits   serial.ModemStatusBits
		line   Line
		invert bool
		want   bool
	}{
		{"cts asserted", serial.ModemStatusBits{CTS: true}, LineCTS, false, true},
		{"cts released", serial.ModemStatusBits{DSR: true}, LineCTS, false, false},
		{"dsr asserted", serial.ModemStatusBits{DSR: true}, LineDSR, false, true},
		{"dcd asserted", serial.ModemStatusBits{DCD: true}, LineDCD, false, true},
		{"ri asserted", serial.ModemStatusBits{RI: true}, LineRI, false, true},
		{"inverted asserted", serial.ModemStatusBits{CTS: true}, LineCTS, true, false},
		{"inverted released", serial.ModemStatusBits{}, LineCTS, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits := tt.bits
			k := &SerialKey{port: &fakePort{bits: &bits}, line: tt.line, invert: tt.invert}
			got, err := k.Pressed()
			if err != nil {
				t.Fatalf("Pressed() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Pressed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSerialKey_PressedError(t *testing.T) {
	portErr := errors.New("port gone")
	k := &SerialKey{port: &fakePort{err: portErr}, line: LineCTS}
	if _, err := k.Pressed(); !errors.Is(err, portErr) {
		t.Errorf("Pressed() error = %v, want wrapped %v", err, portErr)
	}
}

func TestSerialKey_Close(t *testing.T) {
	p := &fakePort{}
	k := &SerialKey{port: p, line: LineCTS}
	if err := k.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !p.closed {
		t.Error("Close() did not close the port")
	}
}

func TestLineState_NilBits(t *testing.T) {
	if lineState(nil, LineCTS) {
		t.Error("lineState(nil) = true, want false")
	}
}

func pressed(t *testing.T, k *MIDIKey) bool {
	t.Helper()
	p, err := k.Pressed()
	if err != nil {
		t.Fatalf("Pressed() error = %v", err)
	}
	return p
}

func TestMIDIKey_AnyNote(t *testing.T) {
	k := newMIDIKey(AnyNote)
	if pressed(t, k) {
		t.Fatal("new key is pressed")
	}

	k.handle(midi.NoteOn(0, 60, 100))
	if !pressed(t, k) {
		t.Error("NoteOn did not press the key")
	}
	k.handle(midi.NoteOn(0, 62, 100))
	k.handle(midi.NoteOff(0, 60))
	if !pressed(t, k) {
		t.Error("key released while another note is held")
	}
	k.handle(midi.NoteOff(0, 62))
	if pressed(t, k) {
		t.Error("key still pressed after all notes released")
	}
}

func TestMIDIKey_ZeroVelocityReleases(t *testing.T) {
	k := newMIDIKey(AnyNote)
	k.handle(midi.NoteOn(0, 60, 100))
	k.handle(midi.NoteOn(0, 60, 0))
	if pressed(t, k) {
		t.Error("NoteOn with velocity 0 did not release the key")
	}
}

func TestMIDIKey_SpecificNote(t *testing.T) {
	k := newMIDIKey(64)
	k.handle(midi.NoteOn(0, 60, 100))
	if pressed(t, k) {
		t.Error("other note pressed the key")
	}
	k.handle(midi.NoteOn(3, 64, 100))
	if !pressed(t, k) {
		t.Error("configured note did not press the key")
	}
	k.handle(midi.NoteOff(3, 64))
	if pressed(t, k) {
		t.Error("configured note release did not release the key")
	}
}

func TestMIDIKey_SustainPedal(t *testing.T) {
	k := newMIDIKey(AnyNote)
	k.handle(midi.ControlChange(0, 64, 127))
	if !pressed(t, k) {
		t.Error("sustain down did not press the key")
	}
	k.handle(midi.ControlChange(0, 7, 0))
	if !pressed(t, k) {
		t.Error("other controller released the key")
	}
	k.handle(midi.ControlChange(0, 64, 0))
	if pressed(t, k) {
		t.Error("sustain up did not release the key")
	}
}

func TestMIDIKey_CloseWithoutDriver(t *testing.T) {
	k := newMIDIKey(AnyNote)
	if err := k.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
