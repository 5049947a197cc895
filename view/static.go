package view

import (
	"fmt"

	"sigaddr/process"
	"sigaddr/resolver"
)

func staticValue(a *resolver.StaticAddress) (process.ProcessMemoryAddress, error) {
	addr, err := a.Value()
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, fmt.Errorf("%s: %w", a.Name(), process.ErrInvalidPointer)
	}
	return addr, nil
}

// FromStatic returns the resolved address of a as a *T.
func FromStatic[T any](a *resolver.StaticAddress) (*T, error) {
	addr, err := staticValue(a)
	if err != nil {
		return nil, err
	}
	return Of[T](addr), nil
}

// VTableFromStatic returns the table of slots at the resolved address of a.
func VTableFromStatic(a *resolver.StaticAddress, slots int) (VTable, error) {
	addr, err := staticValue(a)
	if err != nil {
		return VTable{}, err
	}
	return NewVTable(addr, slots), nil
}

// ReadStatic copies the T at the resolved address of a out of img.
func ReadStatic[T any](img process.Image, a *resolver.StaticAddress) (T, error) {
	addr, err := staticValue(a)
	if err != nil {
		var zero T
		return zero, err
	}
	return Read[T](img, addr)
}

// ReadStaticPath follows a pointer path starting at the resolved address of
// a, as process.ReadPath does, and copies the T at its end out of img.
func ReadStaticPath[T any](img process.Image, a *resolver.StaticAddress, offsets ...int64) (T, error) {
	addr, err := staticValue(a)
	if err != nil {
		var zero T
		return zero, err
	}
	return process.ReadPath[T](img, addr, offsets...)
}
