package cw

import (
	"testing"
	"time"
)

func TestEncodeMessage_SOS(t *testing.T) {
	tm := DefaultTimings()
	got := tm.EncodeMessage("SOS")

	dot := Element{Mark: MarkDot, Duration: tm.Dot, GapAfter: tm.ElementGap}
	dash := Element{Mark: MarkDash, Duration: tm.Dash, GapAfter: tm.ElementGap}
	endOf := func(e Element, gap time.Duration) Element {
		e.GapAfter = gap
		return e
	}

	want := []Element{
		dot, dot, endOf(dot, tm.CharacterGap),
		dash, dash, endOf(dash, tm.CharacterGap),
		dot, dot, endOf(dot, 0),
	}

	if len(got) != len(want) {
		t.Fatalf("len(EncodeMessage(SOS)) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEncodeMessage_WordGap(t *testing.T) {
	tm := DefaultTimings()
	got := tm.EncodeMessage("E T")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].GapAfter != tm.WordGap {
		t.Errorf("gap between words = %v, want %v", got[0].GapAfter, tm.WordGap)
	}
	if got[1].Mark != MarkDash || got[1].Duration != tm.Dash {
		t.Errorf("second element = %+v, want dash", got[1])
	}
}

func TestEncodeMessage_SkipsUnknownAndPadding(t *testing.T) {
	tm := DefaultTimings()
	got := tm.EncodeMessage("  e#  ")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Mark != MarkDot || got[0].GapAfter != 0 {
		t.Errorf("element = %+v", got[0])
	}

	if got := tm.EncodeMessage("#!"); len(got) != 0 {
		t.Errorf("EncodeMessage(#!) = %v, want empty", got)
	}
}

func TestDuration(t *testing.T) {
	tm := DefaultTimings()
	// S = 3 dots, 2 element gaps = 5 units
	if got := Duration(tm.EncodeMessage("S")); got != 5*tm.Dot {
		t.Errorf("Duration(S) = %v, want %v", got, 5*tm.Dot)
	}
	// PARIS is 50 units including the trailing word gap; without it, 43.
	if got := Duration(tm.EncodeMessage("PARIS")); got != 43*tm.Dot {
		t.Errorf("Duration(PARIS) = %v, want %v", got, 43*tm.Dot)
	}
}

// Keying an encoded message through the state machine must decode it back.
func TestEncodeMessage_DecodesThroughSession(t *testing.T) {
	cfg := testSessionConfig()
	tm := cfg.Timings
	text := "CQ DE K1ABC"

	s := NewState()
	var all []Command
	at := Millis(1000)
	step := func(ev Event) {
		var cmds []Command
		s, cmds = Step(cfg, s, ev)
		all = append(all, cmds...)
	}

	for _, e := range tm.EncodeMessage(text) {
		step(MarkStart(at))
		at = at.Add(e.Duration)
		step(MarkEnd(at))
		gap := e.GapAfter
		if gap == 0 {
			gap = tm.WordGap
		}
		for d := time.Duration(0); d <= gap; d += 10 * time.Millisecond {
			step(Tick(at.Add(d)))
		}
		at = at.Add(gap)
	}

	if got := decoded(all); got != text+" " {
		t.Errorf("decoded = %q, want %q", got, text+" ")
	}
}
