// Package address turns a signature match into a final address: it selects
// one match, applies a fixed offset and optionally reads through the result.
package address

import (
	"fmt"
	"strings"

	"sigaddr/signature"
)

// Mode is the dereference step applied at the computed location.
type Mode int

const (
	// Direct yields match + post offset.
	Direct Mode = iota

	// IndirectPointer yields the pointer-sized value stored at match + post offset.
	IndirectPointer

	// Relative reads a signed 32-bit displacement at match + post offset and
	// yields the address it points to, measured from the end of the
	// displacement (x86-64 RIP-relative operands).
	Relative

	// RelativePointer is Relative followed by one pointer read at the target.
	RelativePointer
)

func (m Mode) String() string {
	switch m {
	case Direct:
		return "direct"
	case IndirectPointer:
		return "pointer"
	case Relative:
		return "relative"
	case RelativePointer:
		return "relative_pointer"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String. An empty string is Direct.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "direct":
		return Direct, nil
	case "pointer", "indirect", "indirect_pointer":
		return IndirectPointer, nil
	case "relative", "rip":
		return Relative, nil
	case "relative_pointer":
		return RelativePointer, nil
	}
	return Direct, fmt.Errorf("unknown dereference mode %q", s)
}

type selectionKind int

const (
	selectUnique selectionKind = iota
	selectFirst
	selectNth
)

// Selection decides which match is used when a pattern matches more than once.
// The zero value requires exactly one match.
type Selection struct {
	kind selectionKind
	n    int
}

// SelectUnique requires exactly one match and fails with ErrAmbiguousMatch otherwise.
func SelectUnique() Selection { return Selection{kind: selectUnique} }

// SelectFirst takes the lowest matching address.
func SelectFirst() Selection { return Selection{kind: selectFirst} }

// SelectNth takes the n-th match (zero based) in ascending address order.
func SelectNth(n int) Selection { return Selection{kind: selectNth, n: n} }

func (s Selection) String() string {
	switch s.kind {
	case selectFirst:
		return "first"
	case selectNth:
		return fmt.Sprintf("nth(%d)", s.n)
	default:
		return "unique"
	}
}

// pick returns the index into matches selected by s.
func (s Selection) pick(count int) (int, error) {
	switch {
	case count == 0:
		return -1, fmt.Errorf("%w: no matches", ErrPatternNotFound)
	case s.kind == selectUnique && count > 1:
		return -1, fmt.Errorf("%w: %d matches", ErrAmbiguousMatch, count)
	case s.kind == selectNth && s.n >= count:
		return -1, fmt.Errorf("%w: match #%d requested, %d found", ErrPatternNotFound, s.n, count)
	case s.kind == selectNth:
		return s.n, nil
	}
	return 0, nil
}

// Descriptor binds a pattern to its resolution recipe. Descriptors are
// immutable once built.
type Descriptor struct {
	Name       string
	Signature  string
	Pattern    *signature.Pattern
	Selection  Selection
	PostOffset int64
	Mode       Mode
}

type Option func(*Descriptor)

func WithSelection(s Selection) Option {
	return func(d *Descriptor) {
		d.Selection = s
	}
}

func WithPostOffset(off int64) Option {
	return func(d *Descriptor) {
		d.PostOffset = off
	}
}

func WithMode(m Mode) Option {
	return func(d *Descriptor) {
		d.Mode = m
	}
}

// NewDescriptor parses sig and builds a descriptor. Unless overridden the
// descriptor requires a unique match, has no post offset and uses Direct.
func NewDescriptor(name, sig string, opts ...Option) (*Descriptor, error) {
	p, err := signature.Parse(name, sig)
	if err != nil {
		return nil, err
	}
	return newDescriptor(name, sig, p, opts...)
}

// MustDescriptor is like NewDescriptor but panics on error.
func MustDescriptor(name, sig string, opts ...Option) *Descriptor {
	d, err := NewDescriptor(name, sig, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// MatchUnique as a FromTuple match index requires exactly one match.
const MatchUnique = -1

// FromTuple builds a descriptor from the registration tuple emitted by code
// generators. Either sig or pattern may be empty; when both are given they
// must describe the same bytes. mask uses 0xFF for exact and 0x00 for
// wildcard positions. A negative matchIndex requires a unique match.
func FromTuple(name, sig string, pattern, mask []byte, matchIndex int, postOffset int64, mode Mode) (*Descriptor, error) {
	var (
		p   *signature.Pattern
		err error
	)

	if len(pattern) == 0 && len(mask) > 0 {
		return nil, fmt.Errorf("%w: %q: mask given without a byte pattern", signature.ErrMalformedSignature, name)
	}

	if sig != "" {
		if p, err = signature.Parse(name, sig); err != nil {
			return nil, err
		}
	}

	if len(pattern) > 0 {
		fromBytes, err := signature.FromAOB(name, pattern, mask)
		if err != nil {
			return nil, err
		}
		if p != nil && !p.Equal(fromBytes) {
			return nil, fmt.Errorf("%w: %q: signature %q disagrees with byte pattern %q",
				signature.ErrMalformedSignature, name, p, fromBytes)
		}
		if p == nil {
			p = fromBytes
		}
	}

	if p == nil {
		return nil, fmt.Errorf("%w: %q: neither signature nor byte pattern given", signature.ErrMalformedSignature, name)
	}
	if sig == "" {
		sig = p.String()
	}

	sel := SelectUnique()
	if matchIndex >= 0 {
		sel = SelectNth(matchIndex)
	}

	return newDescriptor(name, sig, p,
		WithSelection(sel),
		WithPostOffset(postOffset),
		WithMode(mode),
	)
}

func newDescriptor(name, sig string, p *signature.Pattern, opts ...Option) (*Descriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: descriptor name is empty", signature.ErrMalformedSignature)
	}

	d := &Descriptor{
		Name:      name,
		Signature: sig,
		Pattern:   p,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.Mode < Direct || d.Mode > RelativePointer {
		return nil, fmt.Errorf("%q: unknown dereference mode %d", name, int(d.Mode))
	}
	if d.Selection.kind == selectNth && d.Selection.n < 0 {
		return nil, fmt.Errorf("%q: negative match index %d", name, d.Selection.n)
	}
	return d, nil
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s [%s] %s%+d %s", d.Name, d.Pattern, d.Selection, d.PostOffset, d.Mode)
}
