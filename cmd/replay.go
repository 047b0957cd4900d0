// cmd/replay.go
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwkeyer/internal/config"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/ColonelBlimp/cwkeyer/internal/lcd"
	"github.com/ColonelBlimp/cwkeyer/internal/script"
)

var (
	replayText string
	replaySave string
)

var errNoScript = errors.New("replay needs a script file or --text")

var replayCmd = &cobra.Command{
	Use:   "replay [script.toml]",
	Short: "Decode a key script on a virtual clock",
	Long: `Replay key presses from a TOML script, or key --text at the configured
speed, through the decoder without hardware. Prints the final display and the
decoded text.

Script format:
  start = 0          # optional clock start in milliseconds
  tail = "2s"        # optional silence after the last press

  [[press]]
  hold = "600ms"     # key down time
  gap = "200ms"      # key up time that follows

  [[press]]
  text = "CQ"        # keyed at the configured speed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayText, "text", "x", "", "key this text instead of reading a script")
	replayCmd.Flags().StringVar(&replaySave, "save", "", "write the script to this file before replaying")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	kcfg, err := settings.Keyer()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var s script.Script
	switch {
	case replayText != "":
		s = script.FromText(replayText)
	case len(args) == 1:
		if s, err = script.Load(args[0]); err != nil {
			return err
		}
	default:
		return errNoScript
	}

	if replaySave != "" {
		if err := script.Write(replaySave, s); err != nil {
			return err
		}
		logger.Info("script saved", "path", replaySave)
	}

	screen, err := lcd.New(settings.DisplayCols, settings.DisplayRows)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}

	var decoded strings.Builder
	err = script.Replay(cmd.Context(), kcfg, screen, s,
		keyer.WithLogger(logger),
		keyer.WithDecodeCallback(func(r rune) { decoded.WriteRune(r) }),
	)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	out := cmd.OutOrStdout()
	border := "+" + strings.Repeat("-", screen.Cols()) + "+"
	fmt.Fprintln(out, border)
	for _, row := range screen.Rows() {
		fmt.Fprintf(out, "|%s|\n", row)
	}
	fmt.Fprintln(out, border)
	fmt.Fprintln(out, strings.TrimRight(decoded.String(), " \n"))
	return nil
}
