// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwkeyer/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cwkeyer",
	Short: "Straight-key Morse decoder with a character display",
	Long: `cwkeyer reads a hand-operated Morse key, sounds a sidetone while the key is
down and decodes the marks and gaps into text on an emulated 16x2 character
display: symbols on the top row, decoded characters on the bottom row.

Key sources:
  Serial: a key across DTR/RTS and a modem status line (CTS, DSR, DCD or RI)
  MIDI:   any note (or one note) of a MIDI keyboard, or its sustain pedal`,
	SilenceUsage: true,
}

// logger is shared by the subcommands. initLogger replaces it once the
// configuration is known.
var logger = slog.Default()

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().DurationP("dot-length", "l", 200*time.Millisecond, "dot length, the base timing unit")
	rootCmd.PersistentFlags().StringP("source", "s", config.KeySourceSerial, "key source: serial or midi")
	rootCmd.PersistentFlags().StringP("port", "p", "", "serial port device, or MIDI input name")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 1200, "sidetone frequency in Hz")
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio playback device index (-1 for default)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")

	bindFlags()
}

// bindFlags lets the global flags override the config file.
func bindFlags() {
	_ = viper.BindPFlag("dot_length", rootCmd.PersistentFlags().Lookup("dot-length"))
	_ = viper.BindPFlag("key_source", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("serial_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("midi_port", rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("tone_frequency", rootCmd.PersistentFlags().Lookup("frequency"))
	_ = viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	initLogger(viper.GetBool("debug"), os.Stderr)
}

// initLogger configures the shared slog logger and makes it the default.
func initLogger(debug bool, w io.Writer) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}
