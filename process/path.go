package process

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// ReadPointer reads a pointer-sized little-endian value at addr.
func ReadPointer(img Image, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	ps := img.PointerSize()
	data, err := img.ReadMemory(addr, ProcessMemorySize(ps))
	if err != nil {
		return 0, err
	}

	switch ps {
	case PointerSize32:
		return ProcessMemoryAddress(binary.LittleEndian.Uint32(data)), nil
	case PointerSize64:
		return ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("unsupported pointer size %d", ps)
	}
}

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base.
func ReadPath[T any](img Image, base ProcessMemoryAddress, offsets ...int64) (T, error) {
	currentAddr := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr.Add(offsets[i])

		ptrVal, err := ReadPointer(img, ptrAddr)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("failed to read pointer at offset %d (addr 0x%x): %w", i, uint64(ptrAddr), err)
		}

		if ptrVal == 0 {
			var zero T
			return zero, fmt.Errorf("pointer at offset %d (addr 0x%x) is null: %w", i, uint64(ptrAddr), ErrInvalidPointer)
		}

		currentAddr = ptrVal
	}

	if len(offsets) > 0 {
		currentAddr = currentAddr.Add(offsets[len(offsets)-1])
	}

	val, err := Read[T](img, currentAddr)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read final value at 0x%x: %w", uint64(currentAddr), err)
	}

	return val, nil
}

// Read copies sizeof(T) bytes at addr into a new T. T must be plain data:
// fixed size, no Go pointers.
func Read[T any](img Image, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := ProcessMemorySize(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	data, err := img.ReadMemory(addr, size)
	if err != nil {
		return t, err
	}

	copyTo(&t, data)
	return t, nil
}

// copyTo copies bytes to *T
func copyTo[T any](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}

	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	copy(dstBytes, src)
}
