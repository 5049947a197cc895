package process_blob

import (
	"fmt"

	"sigaddr/process"
)

// ProcessBlob is a contiguous module image held in memory.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	ptrSize     process.PointerSize
}

var _ process.Image = (*ProcessBlob)(nil)

// NewProcessBlob wraps data as an image loaded at baseAddress with 64-bit pointers.
func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		ptrSize:     process.PointerSize64,
	}
}

// WithPointerSize sets the pointer width used for pointer reads.
func (p *ProcessBlob) WithPointerSize(ps process.PointerSize) *ProcessBlob {
	p.ptrSize = ps
	return p
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) BaseAddress() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) PointerSize() process.PointerSize {
	return p.ptrSize
}

func (p *ProcessBlob) Regions() ([]process.ImageRegion, error) {
	if len(p.data) == 0 {
		return nil, nil
	}
	return []process.ImageRegion{{Address: p.baseaddress, Data: p.data}}, nil
}

func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	region := process.ImageRegion{Address: p.baseaddress, Data: p.data}
	if !region.Contains(addr, size) {
		return nil, fmt.Errorf("read of %d bytes at 0x%x outside blob [0x%x, 0x%x): %w",
			size, uint64(addr), uint64(p.baseaddress), uint64(region.End()), process.ErrAddressNotMapped)
	}
	offset := uint64(addr - p.baseaddress)
	return p.data[offset : offset+uint64(size)], nil
}
