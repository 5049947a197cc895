package table

import (
	"bytes"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tbl := NewTable(
		ColumnSpec{Header: "Name"},
		ColumnSpec{Header: "Address", MinWidth: 10},
		ColumnSpec{Header: "Status", FormatFunc: ColorGreen},
	)
	tbl.AddRow("g_Framework", "0x1400", "ok")
	tbl.AddSeparator()
	tbl.AddRow("short", "")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatalf("render failed - %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines - got %d:\n%s", len(lines), buf.String())
	}

	if lines[0] != "Name        Address    Status" {
		t.Fatalf("expected aligned header - got %q", lines[0])
	}

	if !strings.HasPrefix(lines[2], "g_Framework 0x1400     ") {
		t.Fatalf("expected padded row - got %q", lines[2])
	}

	if visibleLength(lines[2]) != len("g_Framework 0x1400     ok") {
		t.Fatalf("expected color codes to be excluded from width - got %q", lines[2])
	}

	if lines[3] != strings.Repeat("-", 11)+" "+strings.Repeat("-", 10)+" "+strings.Repeat("-", 6) {
		t.Fatalf("expected separator line - got %q", lines[3])
	}

	if !strings.HasPrefix(lines[4], "short       -          ") {
		t.Fatalf("expected blank values - got %q", lines[4])
	}
}

func TestVisibleLength(t *testing.T) {
	if n := visibleLength(ColorRed("abc")); n != 3 {
		t.Fatalf("expected 3 - got %d", n)
	}
}
