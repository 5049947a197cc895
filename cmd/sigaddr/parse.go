package main

import (
	"fmt"
	"strings"

	"sigaddr/signature"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <signature>",
	Short: "Validate a signature and print its canonical form",
	Example: `
sigaddr parse "48 8b 05 ? ? ? ? c3"
  `,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// unquoted signatures arrive as one argument per token
		pattern, err := signature.Parse("parse", strings.Join(args, " "))
		if err != nil {
			return err
		}

		exact := 0
		for _, m := range pattern.Mask() {
			if m {
				exact++
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, pattern)
		fmt.Fprintf(out, "%d bytes, %d exact, %d wildcard\n", pattern.Len(), exact, pattern.Len()-exact)
		return nil
	},
}
