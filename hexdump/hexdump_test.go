package hexdump

import (
	"strings"
	"testing"

	"sigaddr/process_blob"
)

func TestDumpNoColor(t *testing.T) {
	data := []byte("ABCDEFGHIJKLMNOPQR")
	out := Dump(data, Options{BytesPerLine: 16, ShowASCII: true, StartAddress: 0x1000, NoColor: true})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines - got %d:\n%s", len(lines), out)
	}

	want := "0000000000001000  41 42 43 44 45 46 47 48 | 49 4a 4b 4c 4d 4e 4f 50  |ABCDEFGHIJKLMNOP|"
	if lines[0] != want {
		t.Fatalf("expected %q - got %q", want, lines[0])
	}

	if !strings.HasPrefix(lines[1], "0000000000001010  51 52 ") || !strings.HasSuffix(lines[1], "|QR|") {
		t.Fatalf("unexpected second line %q", lines[1])
	}

	// the ASCII column lines up with the full line above
	if strings.Index(lines[1], "|QR|") != strings.Index(lines[0], "|ABC") {
		t.Fatalf("expected aligned ASCII column:\n%s\n%s", lines[0], lines[1])
	}
}

func TestDumpMaxLines(t *testing.T) {
	out := Dump(make([]byte, 64), Options{BytesPerLine: 16, MaxLines: 2, NoColor: true})
	if !strings.HasSuffix(out, "... 32 more bytes\n") {
		t.Fatalf("expected truncation marker - got:\n%s", out)
	}
}

func TestContextClamped(t *testing.T) {
	data := []byte{0x90, 0x90, 0x48, 0x8B, 0x05, 0x00, 0x00}
	img := process_blob.NewProcessBlob(0x2000, data)

	out, err := Context(img, 0x2002, 3, 16, 32, Options{BytesPerLine: 16, NoColor: true})
	if err != nil {
		t.Fatalf("context failed - %v", err)
	}

	if !strings.HasPrefix(out, "0000000000002000  90 90 48 8b 05 00 00") {
		t.Fatalf("expected whole blob - got %q", out)
	}
}
