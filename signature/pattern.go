// Package signature implements wildcarded byte patterns ("signatures") and
// the scanner that locates them in a module image.
package signature

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSignature is returned for signatures that cannot be used: empty,
// mismatched byte and mask lengths, bad hex, or wildcards only.
var ErrMalformedSignature = errors.New("malformed signature")

// Pattern is an immutable wildcarded byte sequence. mask[i] == true means
// bytes[i] must match exactly; false accepts any byte.
type Pattern struct {
	name  string
	bytes []byte
	mask  []bool

	// longest run of exact bytes, used as the search anchor
	anchorOff int
	anchor    []byte
}

// NewPattern validates and copies bytes and mask into a new Pattern.
func NewPattern(name string, bytes []byte, mask []bool) (*Pattern, error) {
	if len(bytes) == 0 {
		return nil, fmt.Errorf("%w: %q: empty pattern", ErrMalformedSignature, name)
	}
	if len(bytes) != len(mask) {
		return nil, fmt.Errorf("%w: %q: mask length (%d) doesn't match pattern length (%d)",
			ErrMalformedSignature, name, len(mask), len(bytes))
	}

	p := &Pattern{
		name:  name,
		bytes: append([]byte(nil), bytes...),
		mask:  append([]bool(nil), mask...),
	}

	bestOff, bestLen := -1, 0
	for i := 0; i < len(mask); {
		if !mask[i] {
			i++
			continue
		}
		j := i
		for j < len(mask) && mask[j] {
			j++
		}
		if j-i > bestLen {
			bestOff, bestLen = i, j-i
		}
		i = j
	}
	if bestOff < 0 {
		return nil, fmt.Errorf("%w: %q: pattern consists entirely of wildcards", ErrMalformedSignature, name)
	}

	// wildcard positions never take part in a comparison, normalize them
	for i, exact := range p.mask {
		if !exact {
			p.bytes[i] = 0
		}
	}

	p.anchorOff = bestOff
	p.anchor = p.bytes[bestOff : bestOff+bestLen]
	return p, nil
}

// FromAOB builds a Pattern from a byte mask where 0xFF means exact match and
// 0x00 means wildcard. An empty mask means every byte is exact.
func FromAOB(name string, pattern, mask []byte) (*Pattern, error) {
	if len(mask) == 0 {
		mask = make([]byte, len(pattern))
		for i := range mask {
			mask[i] = 0xFF
		}
	}
	if len(mask) != len(pattern) {
		return nil, fmt.Errorf("%w: %q: mask length (%d) doesn't match pattern length (%d)",
			ErrMalformedSignature, name, len(mask), len(pattern))
	}

	bools := make([]bool, len(mask))
	for i, m := range mask {
		switch m {
		case 0xFF:
			bools[i] = true
		case 0x00:
		default:
			return nil, fmt.Errorf("%w: %q: partial mask byte 0x%02x at %d", ErrMalformedSignature, name, m, i)
		}
	}
	return NewPattern(name, pattern, bools)
}

// Name returns the pattern's identifier.
func (p *Pattern) Name() string { return p.name }

// Len returns the pattern length in bytes.
func (p *Pattern) Len() int { return len(p.bytes) }

// Bytes returns a copy of the pattern bytes. Wildcard positions are zero.
func (p *Pattern) Bytes() []byte { return append([]byte(nil), p.bytes...) }

// Mask returns a copy of the exact-match mask.
func (p *Pattern) Mask() []bool { return append([]bool(nil), p.mask...) }

// Key identifies the byte/mask content independent of the name. Patterns
// with equal keys always produce the same matches.
func (p *Pattern) Key() string {
	return p.String()
}

// Equal reports whether two patterns match the same byte sequences.
func (p *Pattern) Equal(other *Pattern) bool {
	if other == nil || len(p.bytes) != len(other.bytes) {
		return false
	}
	for i := range p.bytes {
		if p.mask[i] != other.mask[i] || (p.mask[i] && p.bytes[i] != other.bytes[i]) {
			return false
		}
	}
	return true
}

// String returns the canonical signature form, e.g. "48 8B 05 ?? ?? ?? ??".
func (p *Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if !p.mask[i] {
			sb.WriteString("??")
			continue
		}
		sb.WriteString(strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	return sb.String()
}

// matchAt reports whether the pattern matches data at offset i. The caller
// guarantees i+len(p.bytes) <= len(data).
func (p *Pattern) matchAt(data []byte, i int) bool {
	window := data[i : i+len(p.bytes)]
	for j, exact := range p.mask {
		if exact && window[j] != p.bytes[j] {
			return false
		}
	}
	return true
}
