package main

import (
	"errors"
	"fmt"
	"strconv"

	"sigaddr/process"
	"sigaddr/process_blob"

	"github.com/spf13/cobra"
)

// addSourceFlags registers the flags selecting the image a command works on.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("dump", "", "Directory of a saved module dump")
	cmd.Flags().String("file", "", "ELF, PE or raw image file")
	cmd.Flags().String("base", "", "Base address of a raw --file image (e.g. 0x400000)")
	cmd.Flags().Int("pointer-size", 0, "Pointer width of a --file image in bytes, 4 or 8 (default: from the file, 8 for raw images)")
	cmd.Flags().Int("pid", 0, "Process ID to read the module from")
	cmd.Flags().String("process", "", "Process name to read the module from")
	cmd.Flags().String("module", "", "Module name or path inside the process")
}

// openImage builds the image selected by the source flags.
func openImage(cmd *cobra.Command) (process.Image, error) {
	dump, _ := cmd.Flags().GetString("dump")
	file, _ := cmd.Flags().GetString("file")

	switch {
	case dump != "":
		log.Infoln("Loading dump", dump)
		return process_blob.LoadDump(dump)

	case file != "":
		return openFile(cmd, file)
	}

	pid, err := targetPID(cmd)
	if err != nil {
		return nil, err
	}
	if pid == 0 {
		return nil, errors.New("one of --dump, --file, --pid or --process is required")
	}

	module, _ := cmd.Flags().GetString("module")
	if module == "" {
		return nil, errors.New("--module is required with --pid or --process")
	}
	return snapshotModule(pid, module)
}

// openFile loads --file. --pointer-size overrides the width taken from an
// ELF/PE header and the 8 byte default of raw images.
func openFile(cmd *cobra.Command, file string) (process.Image, error) {
	base, err := parseAddress(cmd, "base")
	if err != nil {
		return nil, err
	}

	size, _ := cmd.Flags().GetInt("pointer-size")
	ps := process.PointerSize(size)
	if size != 0 && !ps.IsValid() {
		return nil, fmt.Errorf("invalid --pointer-size %d: must be 4 or 8", size)
	}

	log.Infoln("Loading file", file)
	img, err := process_blob.LoadFile(file, base)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return img, nil
	}

	switch img := img.(type) {
	case *process_blob.ProcessBlob:
		img.WithPointerSize(ps)
	case *process_blob.ProcessDump:
		img.Pointer = ps
	}
	return img, nil
}

// targetPID returns --pid, or the lowest PID named by --process, or 0.
func targetPID(cmd *cobra.Command) (process.ProcessID, error) {
	pid, _ := cmd.Flags().GetInt("pid")
	if pid != 0 {
		return process.ProcessID(pid), nil
	}

	name, _ := cmd.Flags().GetString("process")
	if name == "" {
		return 0, nil
	}

	info, err := findProcess(name)
	if err != nil {
		return 0, err
	}
	log.Infoln("Found process", name, "with PID", info.PID)
	return info.PID, nil
}

func parseAddress(cmd *cobra.Command, flag string) (process.ProcessMemoryAddress, error) {
	s, _ := cmd.Flags().GetString(flag)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	return process.ProcessMemoryAddress(v), nil
}
