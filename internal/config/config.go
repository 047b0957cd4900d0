// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/cw"
	"github.com/ColonelBlimp/cwkeyer/internal/input"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
)

const (
	AppName       = "cwkeyer"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Keyer Configuration

# Timing
dot_length: 200ms       # Base unit; dash = 3, char gap = 3, word gap = 7, idle = 21 units
debounce: 20ms          # Presses shorter than this are ignored
poll_interval: 2ms      # How often the key is sampled

# Display
display_cols: 16        # Character display width
display_rows: 2         # Row 0 shows symbols, row 1 decoded text
banner: "READY"         # Shown at startup; empty to disable
self_test: true         # Play a phrase on the sidetone at startup
self_test_phrase: "SOS"

# Key input
key_source: "serial"    # serial or midi
serial_port: ""         # e.g. /dev/ttyUSB0 or COM3 (see 'cwkeyer devices')
serial_baud: 9600
serial_line: "cts"      # Status line the key closes: cts, dsr, dcd or ri
serial_invert: false    # Treat an asserted line as key up
midi_port: ""           # Substring of the MIDI input name; empty for the first input
midi_note: -1           # Note used as the key, -1 for any note (sustain pedal always keys)

# Sidetone
tone_enabled: true
tone_frequency: 1200    # Hz
tone_volume: 0.5        # 0.0-1.0
sample_rate: 48000      # Playback sample rate in Hz
device_index: -1        # -1 for default playback device

# Output
tui: true               # Draw the display in the terminal when attached to one
log_file: ""            # Log destination in TUI mode; empty discards logs
debug: false            # Enable debug logging
`
)

// Key sources
const (
	KeySourceSerial = "serial"
	KeySourceMIDI   = "midi"
)

// Settings holds all application configuration
type Settings struct {
	// Timing
	DotLength    time.Duration `mapstructure:"dot_length"`
	Debounce     time.Duration `mapstructure:"debounce"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Display
	DisplayCols    int    `mapstructure:"display_cols"`
	DisplayRows    int    `mapstructure:"display_rows"`
	Banner         string `mapstructure:"banner"`
	SelfTest       bool   `mapstructure:"self_test"`
	SelfTestPhrase string `mapstructure:"self_test_phrase"`

	// Key input
	KeySource    string `mapstructure:"key_source"`
	SerialPort   string `mapstructure:"serial_port"`
	SerialBaud   int    `mapstructure:"serial_baud"`
	SerialLine   string `mapstructure:"serial_line"`
	SerialInvert bool   `mapstructure:"serial_invert"`
	MIDIPort     string `mapstructure:"midi_port"`
	MIDINote     int    `mapstructure:"midi_note"`

	// Sidetone
	ToneEnabled   bool    `mapstructure:"tone_enabled"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	ToneVolume    float64 `mapstructure:"tone_volume"`
	SampleRate    int     `mapstructure:"sample_rate"`
	DeviceIndex   int     `mapstructure:"device_index"`

	// Output
	TUI     bool   `mapstructure:"tui"`
	LogFile string `mapstructure:"log_file"`
	Debug   bool   `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwkeyer/
func Init() error {
	viper.SetDefault("dot_length", cw.DefaultDotLength)
	viper.SetDefault("debounce", cw.DefaultDebounce)
	viper.SetDefault("poll_interval", keyer.DefaultPollInterval)
	viper.SetDefault("display_cols", cw.DefaultWidth)
	viper.SetDefault("display_rows", 2)
	viper.SetDefault("banner", keyer.DefaultBanner)
	viper.SetDefault("self_test", true)
	viper.SetDefault("self_test_phrase", keyer.DefaultSelfTest)
	viper.SetDefault("key_source", KeySourceSerial)
	viper.SetDefault("serial_port", "")
	viper.SetDefault("serial_baud", 9600)
	viper.SetDefault("serial_line", string(input.LineCTS))
	viper.SetDefault("serial_invert", false)
	viper.SetDefault("midi_port", "")
	viper.SetDefault("midi_note", input.AnyNote)
	viper.SetDefault("tone_enabled", true)
	viper.SetDefault("tone_frequency", 1200)
	viper.SetDefault("tone_volume", 0.5)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("tui", true)
	viper.SetDefault("log_file", "")
	viper.SetDefault("debug", false)

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Timing
	if s.DotLength < 20*time.Millisecond || s.DotLength > 2*time.Second {
		errs = append(errs, fmt.Errorf("dot_length must be between 20ms and 2s, got %v", s.DotLength))
	}
	if s.Debounce < 0 || s.Debounce >= s.DotLength {
		errs = append(errs, fmt.Errorf("debounce must be at least 0 and shorter than dot_length, got %v", s.Debounce))
	}
	if s.PollInterval < time.Millisecond || s.PollInterval > 50*time.Millisecond {
		errs = append(errs, fmt.Errorf("poll_interval must be between 1ms and 50ms, got %v", s.PollInterval))
	}
	if s.PollInterval >= s.DotLength {
		errs = append(errs, fmt.Errorf("poll_interval (%v) must be shorter than dot_length (%v)", s.PollInterval, s.DotLength))
	}

	// Display
	if s.DisplayCols < 8 || s.DisplayCols > 40 {
		errs = append(errs, fmt.Errorf("display_cols must be between 8 and 40, got %d", s.DisplayCols))
	}
	if s.DisplayRows < 2 || s.DisplayRows > 4 {
		errs = append(errs, fmt.Errorf("display_rows must be between 2 and 4, got %d", s.DisplayRows))
	}
	if len(s.Banner) > s.DisplayCols {
		errs = append(errs, fmt.Errorf("banner must fit in %d columns, got %q", s.DisplayCols, s.Banner))
	}
	for _, r := range s.Banner + s.SelfTestPhrase {
		if r != ' ' && !cw.Known(r) {
			errs = append(errs, fmt.Errorf("banner and self_test_phrase must use A-Z, 0-9 and spaces, got %q", r))
			break
		}
	}

	// Key input
	switch s.KeySource {
	case KeySourceSerial:
		if _, err := input.ParseLine(s.SerialLine); err != nil {
			errs = append(errs, fmt.Errorf("serial_line: %w, got %q", err, s.SerialLine))
		}
		if s.SerialBaud < 1 {
			errs = append(errs, fmt.Errorf("serial_baud must be positive, got %d", s.SerialBaud))
		}
	case KeySourceMIDI:
		if s.MIDINote < input.AnyNote || s.MIDINote > 127 {
			errs = append(errs, fmt.Errorf("midi_note must be between -1 and 127, got %d", s.MIDINote))
		}
	default:
		errs = append(errs, fmt.Errorf("key_source must be %q or %q, got %q", KeySourceSerial, KeySourceMIDI, s.KeySource))
	}

	// Sidetone
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.ToneVolume < 0.0 || s.ToneVolume > 1.0 {
		errs = append(errs, fmt.Errorf("tone_volume must be between 0.0 and 1.0, got %v", s.ToneVolume))
	}
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 (default) or a device index, got %d", s.DeviceIndex))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= float64(s.SampleRate)/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Keyer returns the keyer configuration.
func (s *Settings) Keyer() (keyer.Config, error) {
	timings, err := cw.NewTimings(s.DotLength, s.Debounce)
	if err != nil {
		return keyer.Config{}, err
	}
	cfg := keyer.Config{
		Session:      cw.SessionConfig{Timings: timings, Width: s.DisplayCols},
		PollInterval: s.PollInterval,
		Banner:       s.Banner,
	}
	if s.SelfTest {
		cfg.SelfTest = s.SelfTestPhrase
	}
	return cfg, nil
}

// Audio returns the sidetone configuration.
func (s *Settings) Audio() audio.Config {
	cfg := audio.DefaultConfig()
	cfg.DeviceIndex = s.DeviceIndex
	cfg.SampleRate = uint32(s.SampleRate)
	cfg.Frequency = s.ToneFrequency
	cfg.Volume = s.ToneVolume
	return cfg
}

// Serial returns the serial key configuration.
func (s *Settings) Serial() input.SerialConfig {
	return input.SerialConfig{
		Port:   s.SerialPort,
		Baud:   s.SerialBaud,
		Line:   input.Line(s.SerialLine),
		Invert: s.SerialInvert,
	}
}

// MIDI returns the MIDI key configuration.
func (s *Settings) MIDI() input.MIDIConfig {
	return input.MIDIConfig{Port: s.MIDIPort, Note: s.MIDINote}
}
