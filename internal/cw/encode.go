// internal/cw/encode.go
package cw

import (
	"time"
	"unicode"
)

// Element is one keyed mark of an encoded message
type Element struct {
	Mark     Mark          // MarkDot or MarkDash
	Duration time.Duration // how long the key is held
	GapAfter time.Duration // silence before the next element (0 after the last)
}

// EncodeMessage converts text into keying elements. Marks within a character
// are separated by the element gap, characters by the character gap and words
// by the word gap. Characters outside the table are skipped.
func (t Timings) EncodeMessage(text string) []Element {
	var out []Element
	pendingGap := time.Duration(0)

	for _, r := range text {
		if unicode.IsSpace(r) {
			if len(out) > 0 {
				pendingGap = t.WordGap
			}
			continue
		}
		if !Known(r) {
			continue
		}
		if len(out) > 0 {
			out[len(out)-1].GapAfter = pendingGap
		}
		for _, m := range Encode(r).Marks() {
			hold := t.Dot
			if m == MarkDash {
				hold = t.Dash
			}
			out = append(out, Element{Mark: m, Duration: hold, GapAfter: t.ElementGap})
		}
		out[len(out)-1].GapAfter = 0
		pendingGap = t.CharacterGap
	}
	return out
}

// Duration returns the total keying time of the elements.
func Duration(elements []Element) time.Duration {
	var total time.Duration
	for _, e := range elements {
		total += e.Duration + e.GapAfter
	}
	return total
}
