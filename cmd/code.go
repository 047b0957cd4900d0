// cmd/code.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwkeyer/internal/cw"
)

var encodeCmd = &cobra.Command{
	Use:   "encode TEXT...",
	Short: "Print the Morse code for text",
	Long: `Print the Morse code for each character, separated by spaces, with "/"
between words. Characters outside A-Z and 0-9 print as "?".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), cw.EncodeText(strings.Join(args, " "), " "))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode CODE...",
	Short: "Print the text for Morse codes",
	Long: `Print the character for each code of dots and dashes. "/" is a word space.
Unknown codes print as "?".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), decodeCodes(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd, decodeCmd)
}

// decodeCodes decodes codes given as arguments, each of which may hold
// several space-separated codes.
func decodeCodes(args []string) string {
	var b strings.Builder
	for _, field := range strings.Fields(strings.Join(args, " ")) {
		if field == "/" {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(cw.Decode(cw.Code(field)))
	}
	return b.String()
}
