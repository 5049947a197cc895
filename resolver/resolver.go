// Package resolver holds the registry of address descriptors and the cache of
// their resolved values. Descriptors are registered first, then resolved in a
// single pass against a module image; after that the registry is read-only.
package resolver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"sigaddr/address"
	"sigaddr/process"
	"sigaddr/signature"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var (
	// ErrDuplicateName is returned when a descriptor name is registered twice.
	ErrDuplicateName = errors.New("duplicate descriptor name")

	// ErrUnknownName is returned for lookups of names that were never registered.
	ErrUnknownName = errors.New("unknown descriptor name")

	// ErrNotResolved is returned for lookups before ResolveAll has completed.
	ErrNotResolved = errors.New("addresses not resolved")

	// ErrRegistrationClosed is returned by Register once resolution has started.
	ErrRegistrationClosed = errors.New("registration closed")

	// ErrAlreadyResolved is returned by a second call to ResolveAll.
	ErrAlreadyResolved = errors.New("resolution already started")
)

// State is the lifecycle state of a Resolver. It only moves forward:
// Registering, Resolving, then Ready or Degraded.
type State int32

const (
	Registering State = iota
	Resolving
	Ready
	Degraded
)

func (s State) String() string {
	switch s {
	case Registering:
		return "registering"
	case Resolving:
		return "resolving"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Resolver is the descriptor registry and resolved-address cache.
type Resolver struct {
	state  atomic.Int32
	log    *logger.Logger
	maxdop int

	// guards registration; unused after ResolveAll has taken its snapshot
	mu          sync.Mutex
	order       []string
	descriptors map[string]*address.Descriptor

	// written once by ResolveAll before state leaves Resolving
	resolved map[string]address.Resolved
	failures map[string]error
	report   *Report
}

type Option func(*Resolver)

// WithMaxDOP sets how many patterns are scanned concurrently. Values below
// 2 scan sequentially.
func WithMaxDOP(n int) Option {
	return func(r *Resolver) {
		r.maxdop = n
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// New creates an empty resolver in the Registering state.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		log:         logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "resolver")),
		maxdop:      1,
		descriptors: make(map[string]*address.Descriptor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Register adds d under d.Name. It fails with ErrDuplicateName if the name is
// taken and with ErrRegistrationClosed once ResolveAll has been called; in
// both cases the registry is unchanged.
func (r *Resolver) Register(d *address.Descriptor) (*StaticAddress, error) {
	if d == nil || d.Pattern == nil {
		return nil, fmt.Errorf("%w: descriptor without pattern", signature.ErrMalformedSignature)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() != Registering {
		return nil, fmt.Errorf("register %q: %w", d.Name, ErrRegistrationClosed)
	}
	if _, ok := r.descriptors[d.Name]; ok {
		return nil, fmt.Errorf("register %q: %w", d.Name, ErrDuplicateName)
	}

	r.descriptors[d.Name] = d
	r.order = append(r.order, d.Name)
	return &StaticAddress{r: r, desc: d}, nil
}

// MustRegister is like Register but panics on error. Generated registration
// code calls it from init functions.
func (r *Resolver) MustRegister(d *address.Descriptor) *StaticAddress {
	a, err := r.Register(d)
	if err != nil {
		panic(err)
	}
	return a
}

// Names returns the registered names in registration order.
func (r *Resolver) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Descriptor returns the descriptor registered under name.
func (r *Resolver) Descriptor(name string) (*address.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Get returns the cached address for name. It never scans.
func (r *Resolver) Get(name string) (process.ProcessMemoryAddress, error) {
	res, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Lookup is Get returning the full resolution record.
func (r *Resolver) Lookup(name string) (address.Resolved, error) {
	switch r.State() {
	case Registering, Resolving:
		return address.Resolved{}, fmt.Errorf("get %q: %w", name, ErrNotResolved)
	}

	if res, ok := r.resolved[name]; ok {
		return res, nil
	}
	if err, ok := r.failures[name]; ok {
		return address.Resolved{}, fmt.Errorf("get %q: %w", name, err)
	}
	return address.Resolved{}, fmt.Errorf("get %q: %w", name, ErrUnknownName)
}

// Report returns the result of ResolveAll, or nil before it completed.
func (r *Resolver) Report() *Report {
	switch r.State() {
	case Ready, Degraded:
		return r.report
	}
	return nil
}
