package signature

import (
	"bytes"
	"fmt"
	"iter"
	"slices"

	"sigaddr/process"
)

// All returns the offsets at which p matches haystack, in ascending order.
// Overlapping matches are all reported. The sequence is lazy and may be
// ranged over any number of times.
//
// The longest exact run of the pattern is located with bytes.Index and the
// full wildcard comparison only runs at those hits.
func (p *Pattern) All(haystack []byte) iter.Seq[int] {
	return func(yield func(int) bool) {
		last := len(haystack) - len(p.bytes)
		if last < 0 {
			return
		}

		// an anchor hit at a means a candidate start of a-anchorOff, which
		// must lie in [0, last]
		pos := p.anchorOff
		limit := last + p.anchorOff + len(p.anchor)
		for pos < limit {
			idx := bytes.Index(haystack[pos:limit], p.anchor)
			if idx < 0 {
				return
			}
			a := pos + idx
			start := a - p.anchorOff
			if p.matchAt(haystack, start) && !yield(start) {
				return
			}
			pos = a + 1
		}
	}
}

// Scan returns every offset at which p matches haystack, in ascending order.
func Scan(haystack []byte, p *Pattern) []int {
	return slices.Collect(p.All(haystack))
}

// First returns the lowest matching offset, or -1.
func First(haystack []byte, p *Pattern) int {
	for off := range p.All(haystack) {
		return off
	}
	return -1
}

// ScanNaive is the sliding-window reference implementation of Scan.
func ScanNaive(haystack []byte, p *Pattern) []int {
	var matches []int
	for i := 0; i+len(p.bytes) <= len(haystack); i++ {
		if p.matchAt(haystack, i) {
			matches = append(matches, i)
		}
	}
	return matches
}

// ScanImage scans every region of img and returns absolute match addresses in
// ascending order. Regions that touch in the target are treated as one run,
// so a match may cross from one into the next; matches never cross a gap.
func ScanImage(img process.Image, p *Pattern) ([]process.ProcessMemoryAddress, error) {
	regions, err := img.Regions()
	if err != nil {
		return nil, fmt.Errorf("failed to list image regions: %w", err)
	}

	var (
		results []process.ProcessMemoryAddress
		// last len(p)-1 bytes of the current run, ending at prevEnd
		carry   []byte
		prevEnd process.ProcessMemoryAddress
	)
	for _, region := range regions {
		if region.Address != prevEnd {
			carry = nil
		}

		if len(carry) > 0 && len(region.Data) > 0 {
			seam := append(append([]byte(nil), carry...), region.Data[:min(len(region.Data), p.Len()-1)]...)
			seamStart := region.Address - process.ProcessMemoryAddress(len(carry))
			for off := range p.All(seam) {
				// only matches starting in carry; the rest are found below
				if off >= len(carry) {
					break
				}
				results = append(results, seamStart+process.ProcessMemoryAddress(off))
			}
		}

		for off := range p.All(region.Data) {
			results = append(results, region.Address+process.ProcessMemoryAddress(off))
		}

		keep := p.Len() - 1
		carry = append(carry, region.Data[max(0, len(region.Data)-keep):]...)
		if len(carry) > keep {
			carry = carry[len(carry)-keep:]
		}
		prevEnd = region.End()
	}

	// regions are documented as ascending; keep the guarantee for images that
	// don't honor it
	if !slices.IsSorted(results) {
		slices.Sort(results)
	}
	return results, nil
}
