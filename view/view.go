// Package view reinterprets resolved addresses as typed data.
//
// The in-process views (Of, Field, VTable, Array) dereference the address
// directly and copy nothing. They are only meaningful when the resolver ran
// against the module image of the current process, and the caller is
// responsible for the address staying valid. The remote views read through a
// process.Image instead.
package view

import (
	"errors"
	"fmt"
	"unsafe"

	"sigaddr/process"
)

// ErrIndexOutOfRange is returned by fixed-count views for indexes outside
// [0, Len()).
var ErrIndexOutOfRange = errors.New("index out of range")

const slotSize = unsafe.Sizeof(uintptr(0))

func pointerAt(addr process.ProcessMemoryAddress) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

// Of returns addr as a *T. A zero address gives nil.
func Of[T any](addr process.ProcessMemoryAddress) *T {
	return (*T)(pointerAt(addr))
}

// FieldPtr returns a pointer to the F located offset bytes past addr.
func FieldPtr[F any](addr process.ProcessMemoryAddress, offset uintptr) *F {
	return (*F)(unsafe.Add(pointerAt(addr), offset))
}

// Field reads the F located offset bytes past addr.
func Field[F any](addr process.ProcessMemoryAddress, offset uintptr) F {
	return *FieldPtr[F](addr, offset)
}

// VTable is a fixed number of pointer-sized slots starting at a resolved
// address.
type VTable struct {
	base  process.ProcessMemoryAddress
	slots int
}

func NewVTable(addr process.ProcessMemoryAddress, slots int) VTable {
	return VTable{base: addr, slots: max(slots, 0)}
}

func (v VTable) Address() process.ProcessMemoryAddress { return v.base }

func (v VTable) Len() int { return v.slots }

// Slot returns the function pointer in slot i.
func (v VTable) Slot(i int) (uintptr, error) {
	if i < 0 || i >= v.slots {
		return 0, fmt.Errorf("vtable slot %d of %d: %w", i, v.slots, ErrIndexOutOfRange)
	}
	return *(*uintptr)(unsafe.Add(pointerAt(v.base), uintptr(i)*slotSize)), nil
}

// Slots returns every slot as a slice aliasing the table.
func (v VTable) Slots() []uintptr {
	if v.slots == 0 || v.base == 0 {
		return nil
	}
	return unsafe.Slice((*uintptr)(pointerAt(v.base)), v.slots)
}

// Array is a fixed number of consecutive T starting at a resolved address.
type Array[T any] struct {
	base process.ProcessMemoryAddress
	n    int
}

func NewArray[T any](addr process.ProcessMemoryAddress, n int) Array[T] {
	return Array[T]{base: addr, n: max(n, 0)}
}

func (a Array[T]) Len() int { return a.n }

// At returns a pointer to element i.
func (a Array[T]) At(i int) (*T, error) {
	if i < 0 || i >= a.n {
		return nil, fmt.Errorf("element %d of %d: %w", i, a.n, ErrIndexOutOfRange)
	}
	var zero T
	return (*T)(unsafe.Add(pointerAt(a.base), uintptr(i)*unsafe.Sizeof(zero))), nil
}

// Slice returns the elements as a slice aliasing the target memory.
func (a Array[T]) Slice() []T {
	if a.n == 0 || a.base == 0 {
		return nil
	}
	return unsafe.Slice(Of[T](a.base), a.n)
}
