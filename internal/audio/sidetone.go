// internal/audio/sidetone.go
// Package audio plays the keying sidetone on an audio output device.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio playback not initialized")
	ErrAlreadyRunning = errors.New("audio playback already running")
	ErrNotRunning     = errors.New("audio playback not running")
	// ErrInvalidFrequency indicates the tone must be audible and below Nyquist
	ErrInvalidFrequency = errors.New("tone frequency must be positive and below half the sample rate")
	// ErrInvalidVolume indicates volume must be between 0 and 1
	ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")
)

// Config holds sidetone configuration
type Config struct {
	DeviceIndex int     // -1 for default device
	SampleRate  uint32  // e.g., 48000
	Frequency   float64 // tone pitch in Hz
	Volume      float64 // 0.0-1.0
	BufferSize  uint32  // frames per callback
	RampMs      int     // attack/release time
}

// DefaultConfig returns a 1200 Hz sidetone at half volume
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Frequency:   1200,
		Volume:      0.5,
		BufferSize:  256,
		RampMs:      5,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Frequency <= 0 || c.Frequency >= float64(c.SampleRate)/2 {
		return ErrInvalidFrequency
	}
	if c.Volume < 0 || c.Volume > 1 {
		return ErrInvalidVolume
	}
	return nil
}

// Sidetone plays a keyed tone on a playback device. It implements keyer.Sounder.
type Sidetone struct {
	config  Config
	osc     *Oscillator
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
	mu      sync.Mutex
	scratch []float32
}

// New creates a sidetone. Call Init then Start.
func New(cfg Config) (*Sidetone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ramp := int(cfg.SampleRate) * cfg.RampMs / 1000
	return &Sidetone{
		config: cfg,
		osc:    NewOscillator(cfg.Frequency, float64(cfg.SampleRate), cfg.Volume, ramp),
	}, nil
}

// SetTone keys the tone. Safe to call whether or not the device is running.
func (s *Sidetone) SetTone(on bool) {
	s.osc.SetKeyed(on)
}

// Init initializes the audio backend
func (s *Sidetone) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	s.ctx = ctx
	return nil
}

// Start opens the playback device and begins streaming.
func (s *Sidetone) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if s.ctx == nil {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.SampleRate = s.config.SampleRate
	deviceConfig.PeriodSizeInFrames = s.config.BufferSize
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1

	if s.config.DeviceIndex >= 0 {
		devices, err := s.ctx.Devices(malgo.Playback)
		if err != nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}
		if s.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				s.config.DeviceIndex, len(devices))
		}
		deviceConfig.Playback.DeviceID = devices[s.config.DeviceIndex].ID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			s.render(output, int(frameCount))
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	s.device = device
	s.running = true
	return nil
}

// render fills an output buffer from the audio thread.
func (s *Sidetone) render(output []byte, frames int) {
	if cap(s.scratch) < frames {
		s.scratch = make([]float32, frames)
	}
	samples := s.scratch[:frames]
	s.osc.Fill(samples)
	float32ToBytes(samples, output)
}

// Stop stops playback
func (s *Sidetone) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	s.osc.SetKeyed(false)
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	s.running = false
	return nil
}

// Close releases all audio resources
func (s *Sidetone) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.osc.SetKeyed(false)
	if s.running && s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
		s.running = false
	}

	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// IsRunning returns true if playback is active
func (s *Sidetone) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ListDevices returns the names of the available playback devices in index order.
func ListDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// float32ToBytes writes little-endian float32 samples into dst.
// dst must hold at least 4*len(samples) bytes; extra bytes are zeroed.
func float32ToBytes(samples []float32, dst []byte) {
	n := len(dst) / 4
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(samples[i]))
	}
	for i := n * 4; i < len(dst); i++ {
		dst[i] = 0
	}
}
