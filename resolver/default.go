package resolver

import (
	"context"

	"sigaddr/address"
	"sigaddr/process"
)

var defaultResolver = New()

// Default returns the process-wide resolver used by generated registration
// code. Code that can be handed a *Resolver should prefer that.
func Default() *Resolver {
	return defaultResolver
}

func Register(d *address.Descriptor) (*StaticAddress, error) {
	return defaultResolver.Register(d)
}

func MustRegister(d *address.Descriptor) *StaticAddress {
	return defaultResolver.MustRegister(d)
}

func ResolveAll(ctx context.Context, img process.Image) (*Report, error) {
	return defaultResolver.ResolveAll(ctx, img)
}

func Get(name string) (process.ProcessMemoryAddress, error) {
	return defaultResolver.Get(name)
}
