package main

import (
	"context"
	"os"
	"strconv"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var log = logger.NewLogger(coloransi.Color(coloransi.White, coloransi.BrightBlue, "sigaddr"))

var rootCmd = &cobra.Command{
	Use:   "sigaddr",
	Short: "Resolve static addresses from byte signatures",
	Long: `sigaddr scans a module image for byte signatures and turns each unique match
into an absolute address. Images come from a saved dump, an ELF/PE/raw file or a
module of a running process.`,
	Example: `
# Resolve a registration file against a saved dump
sigaddr resolve --signatures sigs.json --dump ./dump

# Find a signature in a module of a running process
sigaddr scan --signature "48 8B 05 ?? ?? ?? ??" --process game --module game.so
  `,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(schemaCmd)
}

// envString returns the environment variable key, or def when unset.
func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn("ignoring invalid " + key + "=" + v)
	}
	return def
}

func Execute() {
	// fang renders errors and help as styled markdown; plain cobra when piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
