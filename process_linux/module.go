//go:build linux

package process_linux

import (
	"fmt"

	"sigaddr/process"
	"sigaddr/process/memory_map"
	"sigaddr/process_blob"
)

// maxRegionSize bounds a single mapping read by SnapshotModule.
const maxRegionSize = 512 * 1024 * 1024

// ModuleMappings returns the mappings of module name in address order,
// including its anonymous .bss tail. name is a path or a base name.
func (p *LinuxProcess) ModuleMappings(name string) ([]memory_map.MemoryMapItem, error) {
	if err := p.UpdateMemoryMap(); err != nil {
		return nil, err
	}

	mm, err := p.GetMemoryMap()
	if err != nil {
		return nil, err
	}

	items := memory_map.ModuleMappings(mm, name)
	if len(items) == 0 {
		return nil, fmt.Errorf("%q in process %d: %w", name, p.GetPID(), process.ErrModuleNotFound)
	}
	return items, nil
}

// SnapshotModule reads every readable mapping of module name once and
// returns the copy as a segmented image. Unreadable mappings are kept in the
// memory map without data.
func (p *LinuxProcess) SnapshotModule(name string) (*process_blob.ProcessDump, error) {
	items, err := p.ModuleMappings(name)
	if err != nil {
		return nil, err
	}

	pid := p.GetPID()
	dump := process_blob.NewProcessDump()
	dump.PID = pid
	dump.Module = name
	dump.Pointer = p.PointerSize()
	if dump.Name, err = processName(pid); err != nil {
		dump.Name = "unknown"
	}

	// the load address is the mapping of file offset 0
	dump.Base = process.ProcessMemoryAddress(items[0].Address)
	for _, item := range items {
		if item.Offset == 0 && item.Path != "" {
			dump.Base = process.ProcessMemoryAddress(item.Address)
			break
		}
	}

	var captured, total uint
	for _, item := range items {
		var data []byte

		switch {
		case !item.IsReadable():
			p.log.Debugln("Skipping non-readable mapping", item)
		case item.Size > maxRegionSize:
			p.log.Warn(fmt.Sprintf("Skipping large mapping at %x (%d MB)", item.Address, item.Size/1024/1024))
		default:
			data, err = p.ReadMemory(process.ProcessMemoryAddress(item.Address), process.ProcessMemorySize(item.Size))
			if err != nil {
				p.log.Debugln("Failed to read mapping at", fmt.Sprintf("%x", item.Address), err)
				data = nil
			}
		}

		if err := dump.AddRegion(item, data); err != nil {
			return nil, err
		}
		total += item.Size
		captured += uint(len(data))
	}

	if captured == 0 {
		return nil, fmt.Errorf("no readable mapping of %q in process %d: %w", name, pid, process.ErrAddressNotMapped)
	}

	p.log.Infoln("Captured module", name, "at", dump.Base, "-", captured, "of", total, "bytes in", len(items), "mappings")

	return dump, nil
}

// SaveModule writes a snapshot of module name to dirname in the dump format
// read by process_blob.LoadDump.
func (p *LinuxProcess) SaveModule(dirname, name string) error {
	dump, err := p.SnapshotModule(name)
	if err != nil {
		return err
	}

	if err := dump.Save(dirname); err != nil {
		return err
	}

	p.log.Infoln("Module dump saved to", dirname)
	return nil
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
