// Package table renders aligned text tables for the command line tools.
package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// FormatFunc is a callback to format/colorize cell values
type FormatFunc func(value string) string

// ColumnSpec defines a column's properties
type ColumnSpec struct {
	Header     string
	BlankValue string     // Value to show for empty cells (default: "-")
	FormatFunc FormatFunc // Optional formatter/colorizer
	MinWidth   int        // Minimum column width
}

// Table represents a formatted table
type Table struct {
	columns   []ColumnSpec
	rows      [][]string
	widths    []int
	separator string
}

// NewTable creates a new table with the given column specifications
func NewTable(cols ...ColumnSpec) *Table {
	t := &Table{
		columns:   cols,
		widths:    make([]int, len(cols)),
		separator: "-",
	}

	for i, col := range cols {
		t.widths[i] = max(col.MinWidth, len(col.Header))
		if col.BlankValue == "" {
			t.columns[i].BlankValue = "-"
		}
	}

	return t
}

// AddRow adds a row of data to the table. Missing and empty cells show the
// column's blank value.
func (t *Table) AddRow(data ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(data) && data[i] != "" {
			row[i] = data[i]
		} else {
			row[i] = t.columns[i].BlankValue
		}

		if n := visibleLength(row[i]); n > t.widths[i] {
			t.widths[i] = n
		}
	}

	t.rows = append(t.rows, row)
}

// AddSeparator adds a separator line
func (t *Table) AddSeparator() {
	t.rows = append(t.rows, nil)
}

// WithSeparator sets the character used for separator lines
func (t *Table) WithSeparator(char string) *Table {
	t.separator = char
	return t
}

// Len returns the number of rows, separators included.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to the given writer
func (t *Table) Render(w io.Writer) error {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = pad(col.Header, t.widths[i])
	}
	if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(headers, " "), " ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, t.separatorLine("-")); err != nil {
		return err
	}

	for _, row := range t.rows {
		if row == nil {
			if _, err := fmt.Fprintln(w, t.separatorLine(t.separator)); err != nil {
				return err
			}
			continue
		}

		formatted := make([]string, len(row))
		for i, val := range row {
			display := val
			if t.columns[i].FormatFunc != nil {
				display = t.columns[i].FormatFunc(val)
			}
			formatted[i] = pad(display, t.widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(formatted, " "), " ")); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) separatorLine(char string) string {
	sep := make([]string, len(t.columns))
	for i := range sep {
		sep[i] = strings.Repeat(char, t.widths[i])
	}
	return strings.Join(sep, " ")
}

// pad pads a string to the given visible width
func pad(s string, width int) string {
	n := visibleLength(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// visibleLength counts runes outside ANSI escape sequences
func visibleLength(s string) int {
	length := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			length++
		}
	}
	return length
}

func ColorRed(s string) string {
	return coloransi.Foreground(coloransi.Red, s)
}

func ColorGreen(s string) string {
	return coloransi.Foreground(coloransi.Green, s)
}

func ColorYellow(s string) string {
	return coloransi.Foreground(coloransi.Yellow, s)
}

func ColorGray(s string) string {
	return coloransi.Foreground(coloransi.BrightBlack, s)
}
