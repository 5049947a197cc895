//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unsafe"

	"sigaddr/process"

	"golang.org/x/sys/windows"
)

// ListByName returns all processes whose executable name equals name,
// ignoring case. A missing ".exe" suffix is tolerated.
func ListByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(snapshot, &entry); err != nil {
		return nil, fmt.Errorf("Process32First failed: %w", err)
	}

	selfPID := uint32(os.Getpid())
	var out []process.ProcessInfo
	for {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if entry.ProcessID != selfPID && matchesExe(exe, name) {
			out = append(out, process.ProcessInfo{
				PID:  process.ProcessID(entry.ProcessID),
				Name: exe,
				Exe:  exe,
			})
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}

	return out, nil
}

func matchesExe(exe, name string) bool {
	exe, name = strings.ToLower(exe), strings.ToLower(name)
	return strings.TrimSuffix(exe, ".exe") == strings.TrimSuffix(name, ".exe")
}

// OneByName returns the match for name with the lowest PID, or os.ErrNotExist if none.
func OneByName(name string) (process.ProcessInfo, error) {
	procs, err := ListByName(name)
	if err != nil {
		return process.ProcessInfo{}, err
	}
	if len(procs) == 0 {
		return process.ProcessInfo{}, fmt.Errorf("process %q: %w", name, os.ErrNotExist)
	}

	best := procs[0]
	for _, p := range procs[1:] {
		if p.PID < best.PID {
			best = p
		}
	}
	return best, nil
}
