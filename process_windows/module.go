//go:build windows

package process_windows

import (
	"fmt"
	"path/filepath"
	"strings"
	"unsafe"

	"sigaddr/process"
	"sigaddr/process/memory_map"
	"sigaddr/process_blob"

	"golang.org/x/sys/windows"
)

const pageSize = 4096

// ModuleInfo describes a module loaded in a process.
type ModuleInfo struct {
	Name string
	Path string
	Base process.ProcessMemoryAddress
	Size uint
}

// FindModule looks a module up by name (case-insensitive) with a toolhelp
// snapshot.
func FindModule(pid process.ProcessID, name string) (ModuleInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
	if err != nil {
		return ModuleInfo{}, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var me32 windows.ModuleEntry32
	me32.Size = uint32(unsafe.Sizeof(me32))
	if err := windows.Module32First(snapshot, &me32); err != nil {
		return ModuleInfo{}, fmt.Errorf("Module32First failed: %w", err)
	}

	for {
		module := windows.UTF16ToString(me32.Module[:])
		path := windows.UTF16ToString(me32.ExePath[:])
		if strings.EqualFold(module, name) || strings.EqualFold(path, name) {
			return ModuleInfo{
				Name: module,
				Path: path,
				Base: process.ProcessMemoryAddress(me32.ModBaseAddr),
				Size: uint(me32.ModBaseSize),
			}, nil
		}
		if err := windows.Module32Next(snapshot, &me32); err != nil {
			break
		}
	}

	return ModuleInfo{}, fmt.Errorf("%q in process %d: %w", name, pid, process.ErrModuleNotFound)
}

// SnapshotModule copies the image of module name once. The whole image is
// read in one call when possible; otherwise it is read page by page and
// each run of readable pages becomes one region.
func (p *WindowsProcess) SnapshotModule(name string) (*process_blob.ProcessDump, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	module, err := FindModule(pid, name)
	if err != nil {
		return nil, err
	}

	dump := process_blob.NewProcessDump()
	dump.PID = pid
	dump.Name = filepath.Base(module.Path)
	dump.Module = module.Name
	dump.Base = module.Base
	dump.Pointer = p.PointerSize()

	item := memory_map.MemoryMapItem{
		Address: uint64(module.Base),
		Size:    module.Size,
		Perms:   "r--p",
		Path:    module.Path,
	}

	if data, err := p.ReadMemory(module.Base, process.ProcessMemorySize(module.Size)); err == nil {
		if err := dump.AddRegion(item, data); err != nil {
			return nil, err
		}
		p.log.Infoln("Captured module", module.Name, "at", module.Base, "-", module.Size, "bytes")
		return dump, nil
	}

	p.log.Debugln("Full read of", module.Name, "failed, reading page by page")

	var (
		run      []byte
		runStart uint
		ok, bad  int
	)

	for off := uint(0); off < module.Size; off += pageSize {
		n := min(uint(pageSize), module.Size-off)
		page, err := p.ReadMemory(module.Base+process.ProcessMemoryAddress(off), process.ProcessMemorySize(n))
		if err != nil {
			bad++
			if err := p.addRun(dump, module, runStart, run); err != nil {
				return nil, err
			}
			run = nil
			continue
		}
		ok++
		if len(run) == 0 {
			runStart = off
		}
		run = append(run, page...)
	}
	if err := p.addRun(dump, module, runStart, run); err != nil {
		return nil, err
	}

	if ok == 0 {
		return nil, fmt.Errorf("no readable page in %q: %w", module.Name, process.ErrAddressNotMapped)
	}

	p.log.Infoln("Captured module", module.Name, "at", module.Base, "-", ok, "pages readable,", bad, "unreadable")
	return dump, nil
}

// addRun records a run of readable pages starting at offset start.
func (p *WindowsProcess) addRun(dump *process_blob.ProcessDump, module ModuleInfo, start uint, run []byte) error {
	if len(run) == 0 {
		return nil
	}
	item := memory_map.MemoryMapItem{
		Address: uint64(module.Base) + uint64(start),
		Size:    uint(len(run)),
		Perms:   "r--p",
		Offset:  uint64(start),
		Path:    module.Path,
	}
	return dump.AddRegion(item, run)
}

// OpenModule opens pid, snapshots module name and closes the process again.
func OpenModule(pid process.ProcessID, name string) (*process_blob.ProcessDump, error) {
	p, err := NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.SnapshotModule(name)
}
