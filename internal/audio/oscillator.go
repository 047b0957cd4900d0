// internal/audio/oscillator.go
package audio

import (
	"math"
	"sync/atomic"
)

// Oscillator generates a keyed sine tone. Keying changes ramp the amplitude
// over a few milliseconds so the sidetone does not click.
// SetKeyed may be called from any goroutine; Fill only from the audio thread.
type Oscillator struct {
	keyed atomic.Bool

	phase     float64
	phaseStep float64
	volume    float64
	gain      float64
	rampStep  float64
}

// NewOscillator creates an oscillator. rampSamples is the length of the
// attack and release ramps; 0 switches instantly.
func NewOscillator(frequency, sampleRate, volume float64, rampSamples int) *Oscillator {
	ramp := 1.0
	if rampSamples > 0 {
		ramp = 1.0 / float64(rampSamples)
	}
	return &Oscillator{
		phaseStep: 2 * math.Pi * frequency / sampleRate,
		volume:    volume,
		rampStep:  ramp,
	}
}

// SetKeyed turns the tone on or off.
func (o *Oscillator) SetKeyed(on bool) {
	o.keyed.Store(on)
}

// Keyed reports whether the tone is on.
func (o *Oscillator) Keyed() bool {
	return o.keyed.Load()
}

// Fill writes the next len(out) samples.
func (o *Oscillator) Fill(out []float32) {
	target := 0.0
	if o.keyed.Load() {
		target = 1.0
	}
	for i := range out {
		switch {
		case o.gain < target:
			o.gain = math.Min(target, o.gain+o.rampStep)
		case o.gain > target:
			o.gain = math.Max(target, o.gain-o.rampStep)
		}
		if o.gain == 0 {
			out[i] = 0
			continue
		}
		out[i] = float32(math.Sin(o.phase) * o.gain * o.volume)
		o.phase += o.phaseStep
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}
