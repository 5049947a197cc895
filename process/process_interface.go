package process

// ImageRegion is one contiguous, readable range of a module image.
type ImageRegion struct {
	Address ProcessMemoryAddress // Absolute address of Data[0] in the target
	Data    []byte               // Region contents, owned by the image
	Perms   string               // Permissions (e.g., "r-xp"), empty when unknown
}

// End returns the first address past the region.
func (r ImageRegion) End() ProcessMemoryAddress {
	return r.Address + ProcessMemoryAddress(len(r.Data))
}

// Contains reports whether [addr, addr+size) lies entirely inside the region.
func (r ImageRegion) Contains(addr ProcessMemoryAddress, size ProcessMemorySize) bool {
	if addr < r.Address {
		return false
	}
	off := uint64(addr - r.Address)
	return off <= uint64(len(r.Data)) && uint64(size) <= uint64(len(r.Data))-off
}

// Image is a read-only, byte-addressable view of a loaded module in a target
// process. Images never write to the target.
type Image interface {
	// BaseAddress returns the load address of the module.
	BaseAddress() ProcessMemoryAddress

	// PointerSize returns the pointer width of the target process.
	PointerSize() PointerSize

	// Regions returns the readable regions of the image in ascending address
	// order. Regions do not overlap. The returned slices must not be modified.
	Regions() ([]ImageRegion, error)

	// ReadMemory reads size bytes at addr. The whole range must lie inside a
	// single region, otherwise ErrAddressNotMapped is returned.
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}
