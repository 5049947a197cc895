package memory_map

import (
	"fmt"
	"path/filepath"
	"sort"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 `json:"Address"`          // The starting address of the memory region
	Size    uint   `json:"Size"`             // The size of the memory region in bytes
	Perms   string `json:"Perms"`            // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 `json:"Offset,omitempty"` // Offset into the backing file
	Path    string `json:"Path,omitempty"`   // Backing file or pseudo-path ("[heap]"), empty for anonymous memory
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

// Sort orders the memory map by address, which IsValidAddress2 requires.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// IsValidAddress2 returns the region containing addr using a binary search.
// The memory map must be sorted by address.
func IsValidAddress2(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].Address+uint64(memoryMap[i].Size) > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// FilterByPath returns the mappings backed by the module named name. name is
// matched against the full path and against its base name.
func FilterByPath(memoryMap []MemoryMapItem, name string) []MemoryMapItem {
	var out []MemoryMapItem
	for _, item := range memoryMap {
		if item.Path == "" {
			continue
		}
		if item.Path == name || filepath.Base(item.Path) == name {
			out = append(out, item)
		}
	}
	return out
}

// ModuleMappings returns the mappings of the module named name: those backed
// by its file, plus the anonymous mapping that starts where the last of them
// ends. The kernel maps the part of .bss past the file's last page there.
// memoryMap must be sorted.
func ModuleMappings(memoryMap []MemoryMapItem, name string) []MemoryMapItem {
	items := FilterByPath(memoryMap, name)
	if len(items) == 0 {
		return nil
	}

	end := items[len(items)-1].End()
	for _, item := range memoryMap {
		if item.Path == "" && item.Address == end {
			items = append(items, item)
			break
		}
	}
	return items
}
