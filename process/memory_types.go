package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

func (pma ProcessMemoryAddress) String() string {
	return pma.ToString()
}

// Add applies a signed displacement, wrapping like the target's pointer arithmetic.
func (pma ProcessMemoryAddress) Add(delta int64) ProcessMemoryAddress {
	return ProcessMemoryAddress(uint64(pma) + uint64(delta))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// PointerSize is the pointer width of the target process in bytes.
type PointerSize int

const (
	PointerSize32 PointerSize = 4
	PointerSize64 PointerSize = 8
)

// IsValid reports whether the pointer size is one the readers support.
func (ps PointerSize) IsValid() bool {
	return ps == PointerSize32 || ps == PointerSize64
}

// Truncate masks an address to the pointer width.
func (ps PointerSize) Truncate(addr ProcessMemoryAddress) ProcessMemoryAddress {
	if ps == PointerSize32 {
		return addr & 0xFFFFFFFF
	}
	return addr
}
