// Package disasm decodes x86 instructions out of an image, mainly to show
// what a signature match and its displacement point at.
package disasm

import (
	"errors"
	"fmt"

	"sigaddr/process"

	"golang.org/x/arch/x86/x86asm"
)

// maxInstLen is the longest legal x86 instruction.
const maxInstLen = 15

// Inst is one decoded instruction.
type Inst struct {
	Address process.ProcessMemoryAddress
	Bytes   []byte
	Text    string
	Inst    x86asm.Inst
}

// Len returns the encoded length of the instruction.
func (i Inst) Len() int { return i.Inst.Len }

// RIPTarget returns the absolute address of a RIP-relative memory operand or
// a relative branch target.
func (i Inst) RIPTarget() (process.ProcessMemoryAddress, bool) {
	next := i.Address.Add(int64(i.Inst.Len))
	for _, arg := range i.Inst.Args {
		switch a := arg.(type) {
		case x86asm.Mem:
			if a.Base == x86asm.RIP {
				return next.Add(a.Disp), true
			}
		case x86asm.Rel:
			return next.Add(int64(a)), true
		}
	}
	return 0, false
}

func (i Inst) String() string {
	return fmt.Sprintf("%s  %-30s %s", i.Address, fmt.Sprintf("% X", i.Bytes), i.Text)
}

// Decode decodes up to n instructions from data, which is located at addr.
// Decoding stops early at the end of data or at an undecodable byte.
func Decode(data []byte, addr process.ProcessMemoryAddress, mode int, n int) ([]Inst, error) {
	var out []Inst
	for off := 0; off < len(data) && len(out) < n; {
		inst, err := x86asm.Decode(data[off:], mode)
		if err != nil {
			if len(out) == 0 {
				return nil, fmt.Errorf("decode at %s: %w", addr.Add(int64(off)), err)
			}
			break
		}

		pc := addr.Add(int64(off))
		out = append(out, Inst{
			Address: pc,
			Bytes:   append([]byte(nil), data[off:off+inst.Len]...),
			Text:    x86asm.IntelSyntax(inst, uint64(pc), nil),
			Inst:    inst,
		})
		off += inst.Len
	}
	return out, nil
}

// Instructions decodes up to n instructions of img starting at addr. The
// decoding mode follows the image's pointer width.
func Instructions(img process.Image, addr process.ProcessMemoryAddress, n int) ([]Inst, error) {
	if n <= 0 {
		return nil, nil
	}

	mode := 64
	if img.PointerSize() == process.PointerSize32 {
		mode = 32
	}

	// shrink the read until it fits inside the image
	for size := n * maxInstLen; size > 0; size /= 2 {
		data, err := img.ReadMemory(addr, process.ProcessMemorySize(size))
		if err == nil {
			return Decode(data, addr, mode, n)
		}
		if !errors.Is(err, process.ErrAddressNotMapped) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("decode at %s: %w", addr, process.ErrAddressNotMapped)
}
