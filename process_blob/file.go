package process_blob

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"fmt"
	"os"
	"path/filepath"

	"sigaddr/process"
	"sigaddr/process/memory_map"
)

const (
	scnMemExecute = 0x20000000
	scnMemRead    = 0x40000000
	scnMemWrite   = 0x80000000
)

// LoadFile maps an executable from disk the way a loader would place it in
// memory. ELF and PE files are laid out at their preferred virtual
// addresses; anything else is treated as a raw image at base.
func LoadFile(path string, base process.ProcessMemoryAddress) (process.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch {
	case bytes.HasPrefix(data, []byte(elf.ELFMAG)):
		return loadELF(path, data)
	case bytes.HasPrefix(data, []byte("MZ")):
		return loadPE(path, data)
	default:
		return NewProcessBlob(base, data), nil
	}
}

func loadELF(path string, data []byte) (*ProcessDump, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}
	defer f.Close()

	dump := NewProcessDump()
	dump.Name = filepath.Base(path)
	dump.Module = dump.Name
	if f.Class == elf.ELFCLASS32 {
		dump.Pointer = process.PointerSize32
	}

	first := true
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Off+prog.Filesz > uint64(len(data)) {
			return nil, fmt.Errorf("segment at 0x%x extends past end of file", prog.Vaddr)
		}

		// bss is zero-filled in memory
		mem := make([]byte, prog.Memsz)
		copy(mem, data[prog.Off:prog.Off+prog.Filesz])

		item := memory_map.MemoryMapItem{
			Address: prog.Vaddr,
			Size:    uint(prog.Memsz),
			Perms:   elfPerms(prog.Flags),
			Offset:  prog.Off,
			Path:    path,
		}
		if err := dump.AddRegion(item, mem); err != nil {
			return nil, err
		}

		if first || process.ProcessMemoryAddress(prog.Vaddr) < dump.Base {
			dump.Base = process.ProcessMemoryAddress(prog.Vaddr)
			first = false
		}
	}

	return dump, nil
}

func elfPerms(flags elf.ProgFlag) string {
	perms := []byte("---p")
	if flags&elf.PF_R != 0 {
		perms[0] = 'r'
	}
	if flags&elf.PF_W != 0 {
		perms[1] = 'w'
	}
	if flags&elf.PF_X != 0 {
		perms[2] = 'x'
	}
	return string(perms)
}

func loadPE(path string, data []byte) (*ProcessDump, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open pe: %w", err)
	}
	defer f.Close()

	dump := NewProcessDump()
	dump.Name = filepath.Base(path)
	dump.Module = dump.Name

	var headerSize uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dump.Base = process.ProcessMemoryAddress(oh.ImageBase)
		dump.Pointer = process.PointerSize32
		headerSize = uint64(oh.SizeOfHeaders)
	case *pe.OptionalHeader64:
		dump.Base = process.ProcessMemoryAddress(oh.ImageBase)
		headerSize = uint64(oh.SizeOfHeaders)
	default:
		return nil, fmt.Errorf("pe file %s has no optional header", path)
	}

	if headerSize > 0 && headerSize <= uint64(len(data)) {
		item := memory_map.MemoryMapItem{
			Address: uint64(dump.Base),
			Size:    uint(headerSize),
			Perms:   "r--p",
			Path:    path,
		}
		if err := dump.AddRegion(item, append([]byte(nil), data[:headerSize]...)); err != nil {
			return nil, err
		}
	}

	for _, s := range f.Sections {
		size := uint64(s.VirtualSize)
		if size == 0 {
			size = uint64(s.Size)
		}
		if size == 0 {
			continue
		}

		mem := make([]byte, size)
		if s.Size > 0 {
			end := uint64(s.Offset) + uint64(s.Size)
			if end > uint64(len(data)) {
				return nil, fmt.Errorf("section %s extends past end of file", s.Name)
			}
			copy(mem, data[s.Offset:end])
		}

		item := memory_map.MemoryMapItem{
			Address: uint64(dump.Base) + uint64(s.VirtualAddress),
			Size:    uint(size),
			Perms:   pePerms(s.Characteristics),
			Offset:  uint64(s.Offset),
			Path:    path,
		}
		if err := dump.AddRegion(item, mem); err != nil {
			return nil, fmt.Errorf("section %s: %w", s.Name, err)
		}
	}

	return dump, nil
}

func pePerms(characteristics uint32) string {
	perms := []byte("---p")
	if characteristics&scnMemRead != 0 {
		perms[0] = 'r'
	}
	if characteristics&scnMemWrite != 0 {
		perms[1] = 'w'
	}
	if characteristics&scnMemExecute != 0 {
		perms[2] = 'x'
	}
	return string(perms)
}
