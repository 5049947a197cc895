package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sigaddr/process"
	"sigaddr/process/memory_map"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"
)

// ProcessDump is a segmented module image: a memory map plus the bytes of each
// region that was captured. It is loaded from or saved to a dump directory.
type ProcessDump struct {
	PID       process.ProcessID
	Name      string
	Module    string
	Base      process.ProcessMemoryAddress
	Pointer   process.PointerSize
	MemoryMap []memory_map.MemoryMapItem
	Blobs     map[uint64][]byte // Address -> Data
}

var _ process.Image = (*ProcessDump)(nil)

type dumpMetadata struct {
	PID         process.ProcessID `json:"pid"`
	Name        string            `json:"name"`
	Module      string            `json:"module,omitempty"`
	Base        uint64            `json:"base,omitempty"`
	PointerSize int               `json:"pointer_size,omitempty"`
}

// NewProcessDump creates a new ProcessDump instance
func NewProcessDump() *ProcessDump {
	return &ProcessDump{
		Pointer: process.PointerSize64,
		Blobs:   make(map[uint64][]byte),
	}
}

// AddRegion records a captured region. Regions must not overlap.
func (p *ProcessDump) AddRegion(item memory_map.MemoryMapItem, data []byte) error {
	if uint(len(data)) > item.Size {
		return fmt.Errorf("region 0x%x: %d bytes of data exceed region size %d", item.Address, len(data), item.Size)
	}
	for _, existing := range p.MemoryMap {
		if item.Address < existing.End() && existing.Address < item.End() {
			return fmt.Errorf("region 0x%x overlaps region 0x%x", item.Address, existing.Address)
		}
	}

	p.MemoryMap = append(p.MemoryMap, item)
	memory_map.Sort(p.MemoryMap)
	p.Blobs[item.Address] = data
	return nil
}

func (p *ProcessDump) BaseAddress() process.ProcessMemoryAddress {
	if p.Base != 0 || len(p.MemoryMap) == 0 {
		return p.Base
	}
	return process.ProcessMemoryAddress(p.MemoryMap[0].Address)
}

func (p *ProcessDump) PointerSize() process.PointerSize {
	if !p.Pointer.IsValid() {
		return process.PointerSize64
	}
	return p.Pointer
}

func (p *ProcessDump) Regions() ([]process.ImageRegion, error) {
	regions := make([]process.ImageRegion, 0, len(p.MemoryMap))
	for _, item := range p.MemoryMap {
		data, ok := p.Blobs[item.Address]
		if !ok || len(data) == 0 {
			continue
		}
		regions = append(regions, process.ImageRegion{
			Address: process.ProcessMemoryAddress(item.Address),
			Data:    data,
			Perms:   item.Perms,
		})
	}
	return regions, nil
}

func (p *ProcessDump) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	return memory_map.IsValidAddress2(uint64(addr), p.MemoryMap) != nil
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	region := memory_map.IsValidAddress2(uint64(addr), p.MemoryMap)
	if region == nil {
		return nil, fmt.Errorf("0x%x: %w", uint64(addr), process.ErrAddressNotMapped)
	}

	data, ok := p.Blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x: %w", region.Address, process.ErrAddressNotMapped)
	}

	r := process.ImageRegion{Address: process.ProcessMemoryAddress(region.Address), Data: data}
	if !r.Contains(addr, size) {
		return nil, fmt.Errorf("read size %d at 0x%x exceeds region data bounds: %w", size, uint64(addr), process.ErrAddressNotMapped)
	}

	offset := uint64(addr) - region.Address
	result := make([]byte, size)
	copy(result, data[offset:offset+uint64(size)])
	return result, nil
}

func blobFilename(dirname string, item memory_map.MemoryMapItem) string {
	return filepath.Join(dirname, fmt.Sprintf("blob_0x%x_%d.bin", item.Address, item.Size))
}

// Save writes the dump to dirname in the layout Load reads.
func (p *ProcessDump) Save(dirname string) error {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	metadata := dumpMetadata{
		PID:         p.PID,
		Name:        p.Name,
		Module:      p.Module,
		Base:        uint64(p.Base),
		PointerSize: int(p.PointerSize()),
	}
	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, metadataFile), metadataJSON, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	memoryMapJSON, err := json.MarshalIndent(p.MemoryMap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory map: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, memoryMapFile), memoryMapJSON, 0644); err != nil {
		return fmt.Errorf("failed to write memory map file: %w", err)
	}

	for _, region := range p.MemoryMap {
		data, ok := p.Blobs[region.Address]
		if !ok || len(data) == 0 {
			continue
		}
		if err := os.WriteFile(blobFilename(dirname, region), data, 0644); err != nil {
			return fmt.Errorf("failed to write region 0x%x: %w", region.Address, err)
		}
	}

	return nil
}

// Load reads a dump directory written by Save.
func (p *ProcessDump) Load(dirname string) error {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata dumpMetadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	p.PID = metadata.PID
	p.Name = metadata.Name
	p.Module = metadata.Module
	p.Base = process.ProcessMemoryAddress(metadata.Base)
	p.Pointer = process.PointerSize(metadata.PointerSize)

	mmBytes, err := os.ReadFile(filepath.Join(dirname, memoryMapFile))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	if err := json.Unmarshal(mmBytes, &p.MemoryMap); err != nil {
		return fmt.Errorf("failed to unmarshal memory map: %w", err)
	}

	memory_map.Sort(p.MemoryMap)

	if p.Blobs == nil {
		p.Blobs = make(map[uint64][]byte)
	}
	for _, region := range p.MemoryMap {
		filename := blobFilename(dirname, region)
		data, err := os.ReadFile(filename)
		if os.IsNotExist(err) {
			continue // region was not captured
		}
		if err != nil {
			return fmt.Errorf("failed to read blob %s: %w", filename, err)
		}

		p.Blobs[region.Address] = data
	}

	return nil
}

// LoadDump is a convenience wrapper around NewProcessDump and Load.
func LoadDump(dirname string) (*ProcessDump, error) {
	dump := NewProcessDump()
	if err := dump.Load(dirname); err != nil {
		return nil, err
	}
	return dump, nil
}
