package main

import (
	"errors"
	"fmt"
	"io"

	"sigaddr/disasm"
	"sigaddr/hexdump"
	"sigaddr/process"
	"sigaddr/signature"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List every match of a signature in an image",
	Example: `
# Scan an ELF file, showing 32 bytes of context around each match
sigaddr scan --signature "E8 ?? ?? ?? ?? 48 8B" --file ./game --context 32
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, _ := cmd.Flags().GetString("signature")
		if sig == "" {
			return errors.New("--signature is required")
		}
		ctxBytes, _ := cmd.Flags().GetInt("context")
		limit, _ := cmd.Flags().GetInt("limit")
		noColor, _ := cmd.Flags().GetBool("no-color")
		disasmCount, _ := cmd.Flags().GetInt("disasm")

		pattern, err := signature.Parse("scan", sig)
		if err != nil {
			return err
		}

		img, err := openImage(cmd)
		if err != nil {
			return err
		}

		matches, err := signature.ScanImage(img, pattern)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d matches\n", pattern, len(matches))

		options := hexdump.DefaultOptions()
		options.Mask = pattern.Mask()
		options.Image = img
		options.NoColor = noColor

		for i, addr := range matches {
			if limit > 0 && i >= limit {
				fmt.Fprintf(out, "... %d more\n", len(matches)-limit)
				break
			}

			fmt.Fprintf(out, "\n#%d %s (+0x%x)\n", i, addr, uint64(addr-img.BaseAddress()))
			if ctxBytes > 0 {
				dump, err := hexdump.Context(img, addr, pattern.Len(), ctxBytes, ctxBytes, options)
				if err != nil {
					log.Debugln("No context for match at", addr, err)
				} else {
					fmt.Fprint(out, dump)
				}
			}
			if disasmCount > 0 {
				writeDisasm(out, img, addr, disasmCount)
			}
		}
		return nil
	},
}

func writeDisasm(w io.Writer, img process.Image, addr process.ProcessMemoryAddress, n int) {
	insts, err := disasm.Instructions(img, addr, n)
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
		return
	}
	for _, inst := range insts {
		if target, ok := inst.RIPTarget(); ok {
			fmt.Fprintf(w, "  %s ; -> %s\n", inst, target)
			continue
		}
		fmt.Fprintf(w, "  %s\n", inst)
	}
}

func init() {
	addSourceFlags(scanCmd)
	scanCmd.Flags().StringP("signature", "s", "", "Signature to scan for, hex bytes with ?? wildcards")
	scanCmd.Flags().IntP("context", "C", 16, "Bytes of hexdump context around each match (0 disables)")
	scanCmd.Flags().IntP("limit", "l", 32, "Maximum number of matches to print (0 for all)")
	scanCmd.Flags().Bool("no-color", false, "Disable colors in the hexdump")
	scanCmd.Flags().IntP("disasm", "d", 0, "Instructions to disassemble at each match")
}
