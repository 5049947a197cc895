package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Save a module of a running process as a dump directory",
	Long: `Dump copies every readable mapping of a module out of a running process and
writes it in the format read back by --dump.`,
	Example: `
# Save libgame.so of the process named game
sigaddr dump --process game --module libgame.so --output ./dump
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			return errors.New("--output is required")
		}
		module, _ := cmd.Flags().GetString("module")
		if module == "" {
			return errors.New("--module is required")
		}

		pid, err := targetPID(cmd)
		if err != nil {
			return err
		}
		if pid == 0 {
			return errors.New("one of --pid or --process is required")
		}

		if err := os.MkdirAll(output, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}

		dump, err := snapshotModule(pid, module)
		if err != nil {
			return err
		}

		log.Infoln("Saving dump to", output)
		if err := dump.Save(output); err != nil {
			return err
		}

		regions, _ := dump.Regions()
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s of process %d: base %s, %d regions\n", module, pid, dump.BaseAddress(), len(regions))
		return nil
	},
}

func init() {
	dumpCmd.Flags().Int("pid", 0, "Process ID to read the module from")
	dumpCmd.Flags().String("process", "", "Process name to read the module from")
	dumpCmd.Flags().String("module", "", "Module name or path inside the process")
	dumpCmd.Flags().StringP("output", "o", "", "Output directory for the dump")
}
