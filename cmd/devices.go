// cmd/devices.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/input"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List serial ports, MIDI inputs and audio outputs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		listDevices(out, "Serial ports", input.ListSerialPorts)
		listDevices(out, "MIDI inputs", input.ListMIDIInputs)
		listDevices(out, "Audio outputs (device_index)", audio.ListDevices)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

// listDevices prints one section. A backend that fails is reported and skipped.
func listDevices(out io.Writer, title string, list func() ([]string, error)) {
	fmt.Fprintf(out, "%s:\n", title)
	names, err := list()
	switch {
	case err != nil:
		fmt.Fprintf(out, "  unavailable: %v\n", err)
	case len(names) == 0:
		fmt.Fprintln(out, "  none")
	default:
		for i, name := range names {
			fmt.Fprintf(out, "  [%d] %s\n", i, name)
		}
	}
}
