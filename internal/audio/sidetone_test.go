package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DeviceIndex != -1 {
		t.Errorf("DefaultConfig().DeviceIndex = %d, want -1", cfg.DeviceIndex)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("DefaultConfig().SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.Frequency != 1200 {
		t.Errorf("DefaultConfig().Frequency = %v, want 1200", cfg.Frequency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero frequency", func(c *Config) { c.Frequency = 0 }, ErrInvalidFrequency},
		{"above nyquist", func(c *Config) { c.Frequency = 24000 }, ErrInvalidFrequency},
		{"negative volume", func(c *Config) { c.Volume = -0.1 }, ErrInvalidVolume},
		{"volume too high", func(c *Config) { c.Volume = 1.5 }, ErrInvalidVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err != tt.want {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
			if _, err := New(cfg); err != tt.want {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSidetone_InitialState(t *testing.T) {
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true for new sidetone, want false")
	}
	if s.osc.Keyed() {
		t.Error("new sidetone should not be keyed")
	}
}

func TestSidetone_Start_NotInitialized(t *testing.T) {
	s, _ := New(DefaultConfig())
	if err := s.Start(); err != ErrNotInitialized {
		t.Errorf("Start() error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestSidetone_Stop_NotRunning(t *testing.T) {
	s, _ := New(DefaultConfig())
	if err := s.Stop(); err != ErrNotRunning {
		t.Errorf("Stop() error = %v, want %v", err, ErrNotRunning)
	}
}

func TestSidetone_CloseWithoutInit(t *testing.T) {
	s, _ := New(DefaultConfig())
	s.SetTone(true)
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if s.osc.Keyed() {
		t.Error("Close() should unkey the tone")
	}
}

func TestSidetone_SetTone(t *testing.T) {
	s, _ := New(DefaultConfig())
	s.SetTone(true)
	if !s.osc.Keyed() {
		t.Error("SetTone(true) did not key the oscillator")
	}
	s.SetTone(false)
	if s.osc.Keyed() {
		t.Error("SetTone(false) did not unkey the oscillator")
	}
}

func TestSidetone_Render(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RampMs = 0
	s, _ := New(cfg)
	out := make([]byte, 64*4)

	s.render(out, 64)
	for i, b := range out {
		if b != 0 {
			t.Fatalf("unkeyed output byte %d = %d, want silence", i, b)
		}
	}

	s.SetTone(true)
	s.render(out, 64)
	var peak float32
	for i := 0; i < 64; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		if v > peak {
			peak = v
		}
	}
	if peak < 0.4 || peak > 0.5 {
		t.Errorf("keyed peak = %v, want about volume 0.5", peak)
	}
}

func TestOscillator_SilentWhenUnkeyed(t *testing.T) {
	o := NewOscillator(1200, 48000, 1, 0)
	buf := make([]float32, 128)
	o.Fill(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}
}

func TestOscillator_Frequency(t *testing.T) {
	const sampleRate = 48000.0
	const freq = 1000.0
	o := NewOscillator(freq, sampleRate, 1, 0)
	o.SetKeyed(true)

	buf := make([]float32, int(sampleRate)/10) // 100ms
	o.Fill(buf)

	crossings := 0
	for i := 1; i < len(buf); i++ {
		if buf[i-1] <= 0 && buf[i] > 0 {
			crossings++
		}
	}
	// 1000 Hz for 100ms = 100 cycles
	if crossings < 99 || crossings > 101 {
		t.Errorf("rising zero crossings = %d, want about 100", crossings)
	}
}

func TestOscillator_Ramp(t *testing.T) {
	o := NewOscillator(1000, 48000, 1, 48)
	o.SetKeyed(true)

	buf := make([]float32, 64)
	o.Fill(buf)
	if o.gain != 1 {
		t.Errorf("gain after ramp = %v, want 1", o.gain)
	}

	// The first samples are attenuated by the attack.
	if math.Abs(float64(buf[1])) > 0.1 {
		t.Errorf("second sample = %v, want attenuated", buf[1])
	}

	o.SetKeyed(false)
	o.Fill(buf)
	if o.gain != 0 {
		t.Errorf("gain after release = %v, want 0", o.gain)
	}
	if buf[len(buf)-1] != 0 {
		t.Errorf("last sample after release = %v, want 0", buf[len(buf)-1])
	}
}

func TestOscillator_ConcurrentKeying(t *testing.T) {
	o := NewOscillator(1200, 48000, 0.5, 240)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			o.SetKeyed(i%2 == 0)
		}
	}()
	buf := make([]float32, 256)
	for i := 0; i < 100; i++ {
		o.Fill(buf)
	}
	wg.Wait()
}

func TestFloat32ToBytes(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5}
	dst := make([]byte, 5*4)
	for i := range dst {
		dst[i] = 0xFF
	}

	float32ToBytes(samples, dst)
	for i, want := range samples {
		got := math.Float32frombits(binary.LittleEndian.Uint32(dst[i*4:]))
		if got != want {
			t.Errorf("sample %d = %v, want %v", i, got, want)
		}
	}
	for i := 16; i < 20; i++ {
		if dst[i] != 0 {
			t.Errorf("trailing byte %d = %#x, want 0", i, dst[i])
		}
	}
}

func TestFloat32ToBytes_ShortDestination(t *testing.T) {
	dst := make([]byte, 6)
	float32ToBytes([]float32{1, 1}, dst)
	if got := math.Float32frombits(binary.LittleEndian.Uint32(dst)); got != 1 {
		t.Errorf("first sample = %v, want 1", got)
	}
	if dst[4] != 0 || dst[5] != 0 {
		t.Errorf("partial trailing bytes = %v, want zero", dst[4:])
	}
}

func TestErrors(t *testing.T) {
	errs := []error{ErrNotInitialized, ErrAlreadyRunning, ErrNotRunning, ErrInvalidFrequency, ErrInvalidVolume}
	for _, err := range errs {
		if err == nil || err.Error() == "" {
			t.Errorf("error %v has no message", err)
		}
	}
}

func BenchmarkOscillatorFill(b *testing.B) {
	o := NewOscillator(1200, 48000, 0.5, 240)
	o.SetKeyed(true)
	buf := make([]float32, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o.Fill(buf)
	}
}
