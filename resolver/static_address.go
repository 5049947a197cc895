package resolver

import (
	"sigaddr/address"
	"sigaddr/process"
)

// StaticAddress is the handle returned by Register. Generated accessors keep
// one per declared layout and read the address through it.
type StaticAddress struct {
	r    *Resolver
	desc *address.Descriptor
}

func (a *StaticAddress) Name() string {
	return a.desc.Name
}

func (a *StaticAddress) Descriptor() *address.Descriptor {
	return a.desc
}

// Value returns the resolved address, with the same errors as Resolver.Get.
func (a *StaticAddress) Value() (process.ProcessMemoryAddress, error) {
	return a.r.Get(a.desc.Name)
}

// MustValue is like Value but panics on error.
func (a *StaticAddress) MustValue() process.ProcessMemoryAddress {
	v, err := a.Value()
	if err != nil {
		panic(err)
	}
	return v
}
