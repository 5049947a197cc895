package resolver

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"sigaddr/address"
	"sigaddr/process"
	"sigaddr/process/memory_map"
	"sigaddr/process_blob"
	"sigaddr/signature"
)

const testBase = 0x140000000

func testImage() *process_blob.ProcessBlob {
	data := make([]byte, 64)
	copy(data[0:], []byte{0xAA, 0xBB, 0xCC, 0x11})
	copy(data[8:], []byte{0xDD, 0xEE, 0xFF, 0x22})
	binary.LittleEndian.PutUint64(data[12:], 0x7FF600001000)
	copy(data[32:], []byte{0x48, 0x8D, 0x0D, 0x04, 0x00, 0x00, 0x00})
	return process_blob.NewProcessBlob(testBase, data)
}

func TestResolveAll(t *testing.T) {
	r := New()

	r.MustRegister(address.MustDescriptor("direct", "AA BB CC ??", address.WithPostOffset(3)))
	r.MustRegister(address.MustDescriptor("pointer", "DD EE FF 22", address.WithPostOffset(4), address.WithMode(address.IndirectPointer)))
	r.MustRegister(address.MustDescriptor("relative", "48 8D 0D", address.WithPostOffset(3), address.WithMode(address.Relative)))

	report, err := r.ResolveAll(context.Background(), testImage())
	if err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	if report.State != Ready || r.State() != Ready {
		t.Fatalf("expected ready - got %s/%s", report.State, r.State())
	}

	if report.Err() != nil {
		t.Fatalf("expected no report error - got %v", report.Err())
	}

	want := map[string]process.ProcessMemoryAddress{
		"direct":   testBase + 3,
		"pointer":  0x7FF600001000,
		"relative": testBase + 35 + 4 + 4,
	}
	for name, addr := range want {
		got, err := r.Get(name)
		if err != nil {
			t.Fatalf("%s: unexpected error - %v", name, err)
		}
		if got != addr {
			t.Fatalf("%s: expected %s - got %s", name, addr, got)
		}
	}

	if len(report.Resolved) != 3 || report.Resolved[0].Name != "direct" || report.Resolved[2].Name != "relative" {
		t.Fatalf("expected resolved entries in registration order - got %+v", report.Resolved)
	}
}

func TestResolveAll32BitDump(t *testing.T) {
	data := make([]byte, 0x40)
	copy(data[0:], []byte{0xDE, 0xC0, 0xAD, 0x0B})
	binary.LittleEndian.PutUint32(data[4:], 0x00401000)
	// the neighbour a 64-bit read would pick up
	binary.LittleEndian.PutUint32(data[8:], 0x12345678)

	// push dword [rip-0x22] style displacement back to data[4]
	copy(data[0x20:], []byte{0xFF, 0x35})
	disp := int32(0x04 - (0x22 + 4))
	binary.LittleEndian.PutUint32(data[0x22:], uint32(disp))

	dump := process_blob.NewProcessDump()
	dump.Pointer = process.PointerSize32
	item := memory_map.MemoryMapItem{Address: 0x400000, Size: uint(len(data)), Perms: "r--p"}
	if err := dump.AddRegion(item, data); err != nil {
		t.Fatalf("add region failed - %v", err)
	}

	r := New()
	r.MustRegister(address.MustDescriptor("pointer", "DE C0 AD 0B", address.WithPostOffset(4), address.WithMode(address.IndirectPointer)))
	r.MustRegister(address.MustDescriptor("relative_pointer", "FF 35", address.WithPostOffset(2), address.WithMode(address.RelativePointer)))

	report, err := r.ResolveAll(context.Background(), dump)
	if err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}
	if report.State != Ready {
		t.Fatalf("expected ready - got %s: %v", report.State, report.Err())
	}

	for _, name := range []string{"pointer", "relative_pointer"} {
		got, err := r.Get(name)
		if err != nil {
			t.Fatalf("%s: unexpected error - %v", name, err)
		}
		if got != 0x401000 {
			t.Fatalf("%s: expected 0x401000 - got %s", name, got)
		}
	}
}

func TestResolveAllDegraded(t *testing.T) {
	r := New()

	r.MustRegister(address.MustDescriptor("first", "AA BB CC"))
	r.MustRegister(address.MustDescriptor("missing", "01 02 03 04 05"))
	r.MustRegister(address.MustDescriptor("second", "DD EE FF"))

	report, err := r.ResolveAll(context.Background(), testImage())
	if err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	if r.State() != Degraded || report.State != Degraded {
		t.Fatalf("expected degraded - got %s/%s", r.State(), report.State)
	}

	if len(report.Resolved) != 2 || len(report.Failures) != 1 {
		t.Fatalf("expected 2 resolved and 1 failure - got %d and %d", len(report.Resolved), len(report.Failures))
	}

	if !report.Failed("missing") || !errors.Is(report.Failures[0].Err, address.ErrPatternNotFound) {
		t.Fatalf("expected missing to fail with ErrPatternNotFound - got %+v", report.Failures)
	}

	if !errors.Is(report.Err(), address.ErrPatternNotFound) {
		t.Fatalf("expected joined report error to wrap ErrPatternNotFound - got %v", report.Err())
	}

	if _, err := r.Get("missing"); !errors.Is(err, address.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound from get - got %v", err)
	}

	for _, name := range []string{"first", "second"} {
		if _, err := r.Get(name); err != nil {
			t.Fatalf("%s: unexpected error - %v", name, err)
		}
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()

	r.MustRegister(address.MustDescriptor("dup", "AA BB", address.WithPostOffset(1)))
	_, err := r.Register(address.MustDescriptor("dup", "DD EE"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName - got %v", err)
	}

	if names := r.Names(); len(names) != 1 {
		t.Fatalf("expected 1 registered name - got %v", names)
	}

	if _, err := r.ResolveAll(context.Background(), testImage()); err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	// the first registration is the one that counts
	got, err := r.Get("dup")
	if err != nil || got != testBase+1 {
		t.Fatalf("expected 0x%x - got %s (%v)", testBase+1, got, err)
	}
}

func TestRegisterMalformed(t *testing.T) {
	r := New()
	if _, err := r.Register(nil); !errors.Is(err, signature.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature - got %v", err)
	}
	if _, err := r.Register(&address.Descriptor{Name: "empty"}); !errors.Is(err, signature.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature - got %v", err)
	}
}

func TestMustRegisterPanics(t *testing.T) {
	r := New()
	r.MustRegister(address.MustDescriptor("a", "AA"))

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrDuplicateName) {
			t.Fatalf("expected panic with ErrDuplicateName - got %v", rec)
		}
	}()
	r.MustRegister(address.MustDescriptor("a", "BB"))
}

func TestGetBeforeResolve(t *testing.T) {
	r := New()
	a := r.MustRegister(address.MustDescriptor("early", "AA BB"))

	if _, err := r.Get("early"); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("expected ErrNotResolved - got %v", err)
	}

	if _, err := a.Value(); !errors.Is(err, ErrNotResolved) {
		t.Fatalf("expected ErrNotResolved from handle - got %v", err)
	}

	if r.Report() != nil {
		t.Fatalf("expected no report before resolution")
	}
}

func TestGetUnknownName(t *testing.T) {
	r := New()
	r.MustRegister(address.MustDescriptor("known", "AA BB"))

	if _, err := r.ResolveAll(context.Background(), testImage()); err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	if _, err := r.Get("never-registered"); !errors.Is(err, ErrUnknownName) {
		t.Fatalf("expected ErrUnknownName - got %v", err)
	}
}

func TestRegistrationClosed(t *testing.T) {
	r := New()
	r.MustRegister(address.MustDescriptor("a", "AA BB"))

	if _, err := r.ResolveAll(context.Background(), testImage()); err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	if _, err := r.Register(address.MustDescriptor("late", "DD EE")); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed - got %v", err)
	}

	if _, err := r.ResolveAll(context.Background(), testImage()); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved - got %v", err)
	}

	if r.State() != Ready {
		t.Fatalf("expected state to stay ready - got %s", r.State())
	}
}

func TestResolveAllCancelled(t *testing.T) {
	r := New()
	r.MustRegister(address.MustDescriptor("a", "AA BB"))
	r.MustRegister(address.MustDescriptor("b", "DD EE"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.ResolveAll(ctx, testImage())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled - got %v", err)
	}

	if report == nil || report.State != Degraded || r.State() != Degraded {
		t.Fatalf("expected degraded report after cancellation - got %+v", report)
	}

	if _, err := r.Get("a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from get - got %v", err)
	}
}

// countingImage counts how often the image is scanned.
type countingImage struct {
	*process_blob.ProcessBlob
	mu    sync.Mutex
	scans int
}

func (c *countingImage) Regions() ([]process.ImageRegion, error) {
	c.mu.Lock()
	c.scans++
	c.mu.Unlock()
	return c.ProcessBlob.Regions()
}

func TestResolveAllScansPatternOnce(t *testing.T) {
	r := New()
	r.MustRegister(address.MustDescriptor("one", "AA BB CC"))
	r.MustRegister(address.MustDescriptor("two", "aa bb cc", address.WithPostOffset(1)))
	r.MustRegister(address.MustDescriptor("three", "AABBCC", address.WithPostOffset(2)))
	r.MustRegister(address.MustDescriptor("other", "DD EE"))

	img := &countingImage{ProcessBlob: testImage()}
	if _, err := r.ResolveAll(context.Background(), img); err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	if img.scans != 2 {
		t.Fatalf("expected 2 scans - got %d", img.scans)
	}

	if got, _ := r.Get("three"); got != testBase+2 {
		t.Fatalf("expected 0x%x - got %s", testBase+2, got)
	}
}

func TestResolveAllParallel(t *testing.T) {
	data := make([]byte, 4096)
	r := New(WithMaxDOP(4))

	for i := 0; i < 64; i++ {
		off := i * 64
		sig := []byte{0xF0, byte(i), 0x0F, 0xF1}
		copy(data[off:], sig)
		r.MustRegister(address.MustDescriptor(fmt.Sprintf("sig-%d", i), fmt.Sprintf("% X", sig)))
	}
	r.MustRegister(address.MustDescriptor("absent", "F0 FF 0F F1"))

	report, err := r.ResolveAll(context.Background(), process_blob.NewProcessBlob(0x1000, data))
	if err != nil {
		t.Fatalf("resolve all failed - %v", err)
	}

	if report.State != Degraded || len(report.Resolved) != 64 || len(report.Failures) != 1 {
		t.Fatalf("expected 64 resolved and 1 failure - got %d and %d", len(report.Resolved), len(report.Failures))
	}

	for i := 0; i < 64; i++ {
		if report.Resolved[i].Name != fmt.Sprintf("sig-%d", i) {
			t.Fatalf("expected registration order - got %s at %d", report.Resolved[i].Name, i)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Get(fmt.Sprintf("sig-%d", i))
			if err != nil || got != process.ProcessMemoryAddress(0x1000+i*64) {
				t.Errorf("sig-%d: expected 0x%x - got %s (%v)", i, 0x1000+i*64, got, err)
			}
		}()
	}
	wg.Wait()
}

func TestReportRender(t *testing.T) {
	r := New()
	r.MustRegister(address.MustDescriptor("found", "AA BB"))
	r.MustRegister(address.MustDescriptor("lost", "01 02 03"))

	report, _ := r.ResolveAll(context.Background(), testImage())

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("render failed - %v", err)
	}

	out := buf.String()
	for _, want := range []string{"found", "lost", "0x140000000", "degraded: 1 resolved, 1 failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q - got:\n%s", want, out)
		}
	}
}
