package address

import (
	"encoding/binary"
	"errors"
	"fmt"

	"sigaddr/process"
	"sigaddr/signature"
)

var (
	// ErrPatternNotFound is returned when the pattern has no match, or fewer
	// matches than the selected index needs.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrAmbiguousMatch is returned when a unique match is required and the
	// pattern matched more than once.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrOutOfBounds is returned when a dereference reads outside the image.
	ErrOutOfBounds = errors.New("address out of bounds")
)

// Resolved is the outcome of resolving one descriptor.
type Resolved struct {
	Name       string
	Value      process.ProcessMemoryAddress // final address
	Match      process.ProcessMemoryAddress // selected match
	MatchCount int
}

// Resolve scans img for d's pattern and resolves the selected match.
func Resolve(d *Descriptor, img process.Image) (Resolved, error) {
	matches, err := signature.ScanImage(img, d.Pattern)
	if err != nil {
		return Resolved{Name: d.Name}, err
	}
	return Locate(d, matches, img)
}

// Locate resolves d against matches already produced by a scan of img. It
// lets several descriptors share one scan of the same pattern.
func Locate(d *Descriptor, matches []process.ProcessMemoryAddress, img process.Image) (Resolved, error) {
	r := Resolved{Name: d.Name, MatchCount: len(matches)}

	idx, err := d.Selection.pick(len(matches))
	if err != nil {
		return r, err
	}
	r.Match = matches[idx]

	ps := img.PointerSize()
	loc := ps.Truncate(r.Match.Add(d.PostOffset))

	switch d.Mode {
	case Direct:
		r.Value = loc

	case IndirectPointer:
		if r.Value, err = readPointer(img, loc); err != nil {
			return r, err
		}

	case Relative, RelativePointer:
		target, err := readRelative(img, loc)
		if err != nil {
			return r, err
		}
		r.Value = ps.Truncate(target)

		if d.Mode == RelativePointer {
			if r.Value, err = readPointer(img, r.Value); err != nil {
				return r, err
			}
		}

	default:
		return r, fmt.Errorf("unknown dereference mode %d", int(d.Mode))
	}

	return r, nil
}

func readPointer(img process.Image, at process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	v, err := process.ReadPointer(img, at)
	if err != nil {
		return 0, boundsError(at, err)
	}
	return v, nil
}

func readRelative(img process.Image, at process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	data, err := img.ReadMemory(at, 4)
	if err != nil {
		return 0, boundsError(at, err)
	}
	disp := int32(binary.LittleEndian.Uint32(data))
	return at.Add(4 + int64(disp)), nil
}

func boundsError(at process.ProcessMemoryAddress, err error) error {
	if errors.Is(err, process.ErrAddressNotMapped) {
		return fmt.Errorf("read at %s: %w: %w", at, ErrOutOfBounds, err)
	}
	return fmt.Errorf("read at %s: %w", at, err)
}
