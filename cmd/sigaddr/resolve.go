package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sigaddr/process"
	"sigaddr/registration"
	"sigaddr/resolver"
	"sigaddr/view"

	"github.com/spf13/cobra"
)

// JSONReport is the --json form of a resolution report.
type JSONReport struct {
	State    string        `json:"state"`
	Base     string        `json:"base"`
	Resolved []JSONAddress `json:"resolved"`
	Failures []JSONFailure `json:"failures,omitempty"`
}

type JSONAddress struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Offset  string   `json:"offset"`
	Match   string   `json:"match"`
	Hits    int      `json:"hits"`
	Slots   []string `json:"slots,omitempty"`
}

type JSONFailure struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve every signature of a registration file",
	Long: `Resolve registers every entry of a registration file, runs one resolution pass
over the image and prints the resulting addresses. Failed entries are reported
but do not stop the pass.`,
	Example: `
# Resolve against a saved dump with four workers
sigaddr resolve --signatures sigs.json --dump ./dump --maxdop 4

# Fail the command if any signature did not resolve
SIGADDR_SIGNATURES=sigs.json sigaddr resolve --pid 1234 --module libgame.so --strict
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("signatures")
		if path == "" {
			return errors.New("--signatures (or SIGADDR_SIGNATURES) is required")
		}
		maxdop, _ := cmd.Flags().GetInt("maxdop")
		strict, _ := cmd.Flags().GetBool("strict")
		slots, _ := cmd.Flags().GetInt("slots")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		file, err := registration.Load(path)
		if err != nil {
			return err
		}

		r := resolver.New(resolver.WithMaxDOP(maxdop))
		if _, err := file.RegisterAll(r); err != nil {
			return err
		}
		log.Infoln("Registered", len(r.Names()), "signatures from", path)

		if file.Module != "" && !cmd.Flags().Changed("module") {
			cmd.Flags().Set("module", file.Module)
		}

		img, err := openImage(cmd)
		if err != nil {
			return err
		}

		// a cancelled pass still returns the partial report
		report, resolveErr := r.ResolveAll(cmd.Context(), img)
		if report == nil {
			return resolveErr
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := writeJSONReport(out, img, report, slots); err != nil {
				return err
			}
		} else {
			if err := report.Render(out); err != nil {
				return err
			}
			if slots > 0 {
				writeSlots(out, img, report, slots)
			}
		}

		if resolveErr != nil {
			return resolveErr
		}
		if strict && report.State == resolver.Degraded {
			return fmt.Errorf("resolution degraded: %w", report.Err())
		}
		return nil
	},
}

func readSlots(img process.Image, addr process.ProcessMemoryAddress, n int) ([]process.ProcessMemoryAddress, error) {
	return view.NewRemoteVTable(img, addr, n).Slots()
}

func writeSlots(w io.Writer, img process.Image, report *resolver.Report, n int) {
	for _, res := range report.Resolved {
		fmt.Fprintf(w, "\n%s @ %s\n", res.Name, res.Value)
		slots, err := readSlots(img, res.Value, n)
		if err != nil {
			fmt.Fprintf(w, "  %v\n", err)
			continue
		}
		for i, s := range slots {
			fmt.Fprintf(w, "  [%2d] %s\n", i, s)
		}
	}
}

func writeJSONReport(w io.Writer, img process.Image, report *resolver.Report, n int) error {
	base := img.BaseAddress()
	out := JSONReport{
		State:    report.State.String(),
		Base:     base.String(),
		Resolved: []JSONAddress{},
	}

	for _, res := range report.Resolved {
		addr := JSONAddress{
			Name:    res.Name,
			Address: res.Value.String(),
			Offset:  fmt.Sprintf("0x%x", uint64(res.Value-base)),
			Match:   res.Match.String(),
			Hits:    res.MatchCount,
		}
		if n > 0 {
			if slots, err := readSlots(img, res.Value, n); err == nil {
				for _, s := range slots {
					addr.Slots = append(addr.Slots, s.String())
				}
			}
		}
		out.Resolved = append(out.Resolved, addr)
	}

	for _, f := range report.Failures {
		out.Failures = append(out.Failures, JSONFailure{
			Name:      f.Name,
			Signature: f.Signature,
			Error:     f.Err.Error(),
		})
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(bts))
	return err
}

func init() {
	addSourceFlags(resolveCmd)
	resolveCmd.Flags().String("signatures", envString("SIGADDR_SIGNATURES", ""), "Registration file (env SIGADDR_SIGNATURES)")
	resolveCmd.Flags().Int("maxdop", envInt("SIGADDR_MAXDOP", 1), "Patterns scanned in parallel (env SIGADDR_MAXDOP)")
	resolveCmd.Flags().Bool("strict", false, "Exit non-zero if any signature failed to resolve")
	resolveCmd.Flags().Int("slots", 0, "Pointer slots to print at each resolved address")
	resolveCmd.Flags().BoolP("json", "j", false, "Output the report as JSON")
}
