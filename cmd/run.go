// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/input"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/lcd"
	"github.com/ColonelBlimp/cwkeyer/internal/recovery"
	"github.com/ColonelBlimp/cwkeyer/internal/tui"
)

var noTUI bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode a live key",
	Long: `Open the key and the sidetone, show the banner, play the self-test phrase
and decode until interrupted. Draws the display in the terminal when stdout is
a terminal; otherwise prints decoded text as it arrives.`,
	RunE: runKeyer,
}

func init() {
	runCmd.Flags().BoolVar(&noTUI, "no-tui", false, "print decoded text instead of drawing the display")
	rootCmd.AddCommand(runCmd)
}

// closableKey is a key input that holds a device open.
type closableKey interface {
	keyer.Key
	io.Closer
}

func runKeyer(cmd *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	kcfg, err := settings.Keyer()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	useTUI := settings.TUI && !noTUI && term.IsTerminal(int(os.Stdout.Fd()))
	closeLog, err := setupLogging(settings, useTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	key, err := openKey(settings)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}
	defer func() {
		if err := key.Close(); err != nil {
			logger.Warn("close key", "err", err)
		}
	}()

	screen, err := lcd.New(settings.DisplayCols, settings.DisplayRows)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}

	var sounders keyer.Sounders
	if settings.ToneEnabled {
		tone, err := startSidetone(settings.Audio())
		if err != nil {
			// The keyer still decodes without a sidetone.
			logger.Warn("sidetone unavailable", "err", err)
		} else {
			defer func() { _ = tone.Close() }()
			sounders = append(sounders, tone)
		}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if useTUI {
		return runTUI(ctx, cancel, cmd.OutOrStdout(), kcfg, key, screen, sounders)
	}
	return runConsole(ctx, cmd.OutOrStdout(), kcfg, key, screen, sounders)
}

func openKey(s *config.Settings) (closableKey, error) {
	if s.KeySource == config.KeySourceMIDI {
		k, err := input.OpenMIDI(s.MIDI())
		if err != nil {
			return nil, err
		}
		return k, nil
	}
	k, err := input.OpenSerial(s.Serial())
	if err != nil {
		return nil, err
	}
	return k, nil
}

func startSidetone(cfg audio.Config) (*audio.Sidetone, error) {
	tone, err := audio.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := tone.Init(); err != nil {
		return nil, err
	}
	if err := tone.Start(); err != nil {
		_ = tone.Close()
		return nil, err
	}
	logger.Info("sidetone started", "frequency", cfg.Frequency, "sample_rate", cfg.SampleRate)
	return tone, nil
}

// setupLogging sends logs away from the terminal while the UI owns it.
func setupLogging(s *config.Settings, useTUI bool) (func(), error) {
	if !useTUI {
		return func() {}, nil
	}
	if s.LogFile == "" {
		initLogger(s.Debug, io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	initLogger(s.Debug, f)
	return func() { _ = f.Close() }, nil
}

// runConsole decodes on the calling goroutine, printing text as it is decoded.
func runConsole(ctx context.Context, out io.Writer, cfg keyer.Config, key keyer.Key, screen *lcd.Screen, sounders keyer.Sounders) error {
	defer recovery.HandlePanicFunc(func() { sounders.SetTone(false) })

	k, err := keyer.New(cfg, key, screen,
		keyer.WithSounder(sounders),
		keyer.WithLogger(logger),
		keyer.WithDecodeCallback(func(r rune) { fmt.Fprint(out, string(r)) }),
	)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cfg.Banner)
	err = k.Start(ctx)
	fmt.Fprintln(out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runTUI decodes on a separate goroutine and draws the display until the
// user quits or the key fails.
func runTUI(ctx context.Context, cancel context.CancelFunc, out io.Writer, cfg keyer.Config, key keyer.Key, screen *lcd.Screen, sounders keyer.Sounders) error {
	model := tui.New("cwkeyer", screen.Cols(), len(screen.Rows()), cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())
	bridge := tui.NewBridge(p)

	screen.SetCallback(bridge.Screen)
	k, err := keyer.New(cfg, key, screen,
		keyer.WithSounder(append(sounders, bridge)),
		keyer.WithLogger(logger),
		keyer.WithDecodeCallback(bridge.Decoded),
	)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		var err error
		defer close(done)
		defer func() {
			sounders.SetTone(false)
			bridge.Done(err)
		}()
		defer recovery.Capture(&err)

		err = k.Start(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}()

	final, runErr := p.Run()
	cancel()
	<-done
	screen.SetCallback(nil)

	if runErr != nil {
		return fmt.Errorf("terminal ui: %w", runErr)
	}
	m, ok := final.(tui.Model)
	if !ok {
		return nil
	}
	if text := m.Transcript(); text != "" {
		fmt.Fprintln(out, text)
	}
	return m.Err()
}
