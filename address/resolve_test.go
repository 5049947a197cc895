package address

import (
	"encoding/binary"
	"errors"
	"testing"

	"sigaddr/process"
	"sigaddr/process_blob"
	"sigaddr/signature"
)

func TestResolveDirectScenario(t *testing.T) {
	img := process_blob.NewProcessBlob(0, []byte{0x48, 0x8B, 0x05, 0xAA, 0xBB, 0xCC, 0xDD, 0x90})

	d, err := FromTuple("g_Framework", "",
		[]byte{0x48, 0x8B, 0x05, 0x00, 0x00, 0x00, 0x00},
		[]byte{0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00},
		MatchUnique, 7, Direct)
	if err != nil {
		t.Fatalf("failed to build descriptor - %v", err)
	}

	r, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	if r.Match != 0 {
		t.Fatalf("expected match at 0 - got %s", r.Match)
	}

	if r.Value != 7 {
		t.Fatalf("expected resolved address 7 - got %s", r.Value)
	}

	if r.MatchCount != 1 {
		t.Fatalf("expected 1 match - got %d", r.MatchCount)
	}
}

func TestResolveDirectWithBase(t *testing.T) {
	const base = 0x140000000
	data := []byte{0x90, 0x90, 0xE8, 0x11, 0x22, 0x33, 0x44, 0xC3}
	img := process_blob.NewProcessBlob(base, data)

	d := MustDescriptor("call", "E8 ?? ?? ?? ?? C3", WithPostOffset(-2))
	r, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	if r.Value != base {
		t.Fatalf("expected 0x%x - got %s", base, r.Value)
	}
}

func TestResolveIndirectPointer(t *testing.T) {
	data := make([]byte, 32)
	copy(data, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	binary.LittleEndian.PutUint64(data[8:], 0x7FF612345678)
	img := process_blob.NewProcessBlob(0x1000, data)

	d := MustDescriptor("ptr", "DE AD BE EF", WithPostOffset(8), WithMode(IndirectPointer))
	r, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	if r.Value != 0x7FF612345678 {
		t.Fatalf("expected 0x7FF612345678 - got %s", r.Value)
	}
}

func TestResolveIndirectPointer32(t *testing.T) {
	data := []byte{0xA1, 0x10, 0x20, 0x30, 0x40, 0x00, 0x00, 0x00}
	img := process_blob.NewProcessBlob(0x400000, data).WithPointerSize(process.PointerSize32)

	d := MustDescriptor("ptr32", "A1 ?? ?? ?? ??", WithPostOffset(1), WithMode(IndirectPointer))
	r, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	if r.Value != 0x40302010 {
		t.Fatalf("expected 0x40302010 - got %s", r.Value)
	}
}

func TestResolveRelative(t *testing.T) {
	// mov rax, [rip+0x10] at 0x2000
	data := make([]byte, 64)
	copy(data, []byte{0x48, 0x8B, 0x05, 0x10, 0x00, 0x00, 0x00})
	binary.LittleEndian.PutUint64(data[0x17:], 0xCAFEBABE)
	img := process_blob.NewProcessBlob(0x2000, data)

	d := MustDescriptor("rip", "48 8B 05 ?? ?? ?? ??", WithPostOffset(3), WithMode(Relative))
	r, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	if r.Value != 0x2017 {
		t.Fatalf("expected 0x2017 - got %s", r.Value)
	}

	d = MustDescriptor("rip", "48 8B 05 ?? ?? ?? ??", WithPostOffset(3), WithMode(RelativePointer))
	r, err = Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	if r.Value != 0xCAFEBABE {
		t.Fatalf("expected 0xCAFEBABE - got %s", r.Value)
	}
}

func TestResolveRelativeNegative(t *testing.T) {
	data := make([]byte, 32)
	copy(data[16:], []byte{0xE8, 0xEB, 0xFF, 0xFF, 0xFF})
	img := process_blob.NewProcessBlob(0x5000, data)

	d := MustDescriptor("call", "E8 ?? ?? ?? ??", WithPostOffset(1), WithMode(Relative))
	r, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}

	// 0x5011 + 4 - 0x15
	if r.Value != 0x5000 {
		t.Fatalf("expected 0x5000 - got %s", r.Value)
	}
}

func TestResolveFailures(t *testing.T) {
	data := []byte{0xCC, 0x01, 0xCC, 0x02, 0xCC, 0x03, 0x55}
	img := process_blob.NewProcessBlob(0, data)

	tests := []struct {
		name string
		desc *Descriptor
		want error
	}{
		{
			name: "missing",
			desc: MustDescriptor("missing", "DE AD"),
			want: ErrPatternNotFound,
		},
		{
			name: "ambiguous",
			desc: MustDescriptor("ambiguous", "CC ??"),
			want: ErrAmbiguousMatch,
		},
		{
			name: "nth out of range",
			desc: MustDescriptor("nth", "CC ??", WithSelection(SelectNth(3))),
			want: ErrPatternNotFound,
		},
		{
			name: "pointer past end",
			desc: MustDescriptor("pointer", "55", WithMode(IndirectPointer)),
			want: ErrOutOfBounds,
		},
		{
			name: "pointer before start",
			desc: MustDescriptor("before", "CC 01", WithPostOffset(-8), WithMode(IndirectPointer)),
			want: ErrOutOfBounds,
		},
		{
			name: "relative past end",
			desc: MustDescriptor("relative", "CC 03", WithPostOffset(2), WithMode(Relative)),
			want: ErrOutOfBounds,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Resolve(test.desc, img)
			if !errors.Is(err, test.want) {
				t.Fatalf("expected %v - got %v", test.want, err)
			}
		})
	}
}

func TestResolveOutOfBoundsIsUnmapped(t *testing.T) {
	img := process_blob.NewProcessBlob(0, []byte{0x55})
	_, err := Resolve(MustDescriptor("p", "55", WithMode(IndirectPointer)), img)
	if !errors.Is(err, process.ErrAddressNotMapped) {
		t.Fatalf("expected error to wrap ErrAddressNotMapped - got %v", err)
	}
}

func TestResolveSelection(t *testing.T) {
	data := []byte{0xCC, 0x01, 0xCC, 0x02, 0xCC, 0x03}
	img := process_blob.NewProcessBlob(0x100, data)

	r, err := Resolve(MustDescriptor("first", "CC ??", WithSelection(SelectFirst())), img)
	if err != nil {
		t.Fatalf("first failed - %v", err)
	}
	if r.Value != 0x100 || r.MatchCount != 3 {
		t.Fatalf("expected 0x100 with 3 matches - got %s with %d", r.Value, r.MatchCount)
	}

	r, err = Resolve(MustDescriptor("nth", "CC ??", WithSelection(SelectNth(2))), img)
	if err != nil {
		t.Fatalf("nth failed - %v", err)
	}
	if r.Value != 0x104 {
		t.Fatalf("expected 0x104 - got %s", r.Value)
	}
}

func TestResolveIdempotent(t *testing.T) {
	data := []byte{0x00, 0x48, 0x8D, 0x0D, 0x01, 0x00, 0x00, 0x00, 0x00}
	img := process_blob.NewProcessBlob(0x7000, data)
	d := MustDescriptor("lea", "48 8D 0D", WithPostOffset(3), WithMode(Relative))

	first, err := Resolve(d, img)
	if err != nil {
		t.Fatalf("resolve failed - %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Resolve(d, img)
		if err != nil {
			t.Fatalf("resolve failed - %v", err)
		}
		if again != first {
			t.Fatalf("expected %+v - got %+v", first, again)
		}
	}
}

func TestFromTuple(t *testing.T) {
	_, err := FromTuple("agree", "48 8B ??", []byte{0x48, 0x8B, 0x00}, []byte{0xFF, 0xFF, 0x00}, 0, 0, Direct)
	if err != nil {
		t.Fatalf("expected agreeing tuple to build - got %v", err)
	}

	_, err = FromTuple("disagree", "48 8B ??", []byte{0x48, 0x8C, 0x00}, []byte{0xFF, 0xFF, 0x00}, 0, 0, Direct)
	if !errors.Is(err, signature.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature - got %v", err)
	}

	_, err = FromTuple("empty", "", nil, nil, 0, 0, Direct)
	if !errors.Is(err, signature.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature - got %v", err)
	}

	_, err = FromTuple("mask only", "48 8B", nil, []byte{0xFF, 0x00}, 0, 0, Direct)
	if !errors.Is(err, signature.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature for a mask without bytes - got %v", err)
	}

	_, err = FromTuple("wild", "?? ??", nil, nil, 0, 0, Direct)
	if !errors.Is(err, signature.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature - got %v", err)
	}

	d, err := FromTuple("bytes", "", []byte{0x90, 0xC3}, nil, 1, 4, IndirectPointer)
	if err != nil {
		t.Fatalf("expected bytes-only tuple to build - got %v", err)
	}
	if d.Signature != "90 C3" {
		t.Fatalf("expected signature \"90 C3\" - got %q", d.Signature)
	}
	if d.Selection != SelectNth(1) {
		t.Fatalf("expected nth(1) - got %s", d.Selection)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Direct, IndirectPointer, Relative, RelativePointer} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("expected %s - got %s (%v)", m, got, err)
		}
	}

	if _, err := ParseMode("sideways"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
