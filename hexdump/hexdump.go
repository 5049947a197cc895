// Package hexdump renders colored hex dumps of image memory, highlighting the
// bytes of a signature match.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"sigaddr/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartAddress is the address of data[0]
	StartAddress process.ProcessMemoryAddress

	// HighlightOffset and HighlightLength select the bytes of data to highlight
	HighlightOffset int
	HighlightLength int

	// Mask marks which highlighted bytes were matched exactly; wildcard bytes
	// are highlighted in a second color. Nil means all exact.
	Mask []bool

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Image, when set, is used to mark 8-byte aligned values that point into it
	Image process.Image

	// NoColor disables ANSI colors
	NoColor bool
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		ShowASCII:    true,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(w io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	for line, offset := 0, 0; offset < len(data); line, offset = line+1, offset+options.BytesPerLine {
		if options.MaxLines > 0 && line >= options.MaxLines {
			fmt.Fprintf(w, "... %d more bytes\n", len(data)-offset)
			return
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(w, data, offset, end, options)
	}
}

func formatLine(w io.Writer, data []byte, start, end int, options Options) {
	addr := options.StartAddress + process.ProcessMemoryAddress(start)
	fmt.Fprint(w, paint(options, coloransi.Cyan, fmt.Sprintf("%016x", uint64(addr))), "  ")

	half := options.BytesPerLine / 2
	for i := start; i < end; i++ {
		if i > start {
			if options.BytesPerLine >= 8 && i-start == half {
				fmt.Fprint(w, " | ")
			} else {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, colorByte(options, i, data[i], fmt.Sprintf("%02x", data[i])))
	}

	// keep the ASCII column aligned on short lines
	if missing := options.BytesPerLine - (end - start); missing > 0 {
		pad := missing * 3
		if options.BytesPerLine >= 8 && end-start <= half {
			pad += 2
		}
		fmt.Fprint(w, strings.Repeat(" ", pad))
	}

	if options.ShowASCII {
		fmt.Fprint(w, "  |")
		for i := start; i < end; i++ {
			c := rune(data[i])
			if !unicode.IsPrint(c) || c > unicode.MaxASCII {
				c = '.'
			}
			fmt.Fprint(w, colorByte(options, i, data[i], string(c)))
		}
		fmt.Fprint(w, "|")
	}

	if options.Image != nil {
		formatPointers(w, data[start:end], options)
	}

	fmt.Fprintln(w)
}

func formatPointers(w io.Writer, line []byte, options Options) {
	for i := 0; i+8 <= len(line); i += 8 {
		ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(line[i:]))
		if ptr == 0 {
			continue
		}
		if _, err := options.Image.ReadMemory(ptr, 1); err == nil {
			fmt.Fprint(w, " ", paint(options, coloransi.Yellow, ptr.String()))
		}
	}
}

func colorByte(options Options, i int, b byte, s string) string {
	rel := i - options.HighlightOffset
	if options.HighlightLength > 0 && rel >= 0 && rel < options.HighlightLength {
		if rel < len(options.Mask) && !options.Mask[rel] {
			return paint(options, coloransi.BrightBlue, s)
		}
		if options.NoColor {
			return s
		}
		return coloransi.Color(coloransi.White, coloransi.ColorPurple, s)
	}
	if b == 0 {
		return paint(options, coloransi.BrightBlack, s)
	}
	return s
}

func paint(options Options, color coloransi.ColorCode, s string) string {
	if options.NoColor {
		return s
	}
	return coloransi.Foreground(color, s)
}

// Context returns a dump of the bytes surrounding a match at addr of the
// given length, reading up to before bytes ahead of it and after bytes past
// its end. Reads are clamped to what the image can supply.
func Context(img process.Image, addr process.ProcessMemoryAddress, length, before, after int, options Options) (string, error) {
	start := addr
	for b := before; b > 0; b /= 2 {
		candidate := addr - process.ProcessMemoryAddress(b)
		if candidate > addr {
			continue
		}
		if _, err := img.ReadMemory(candidate, process.ProcessMemorySize(b+length)); err == nil {
			start = candidate
			break
		}
	}

	size := int(addr-start) + length
	for a := after; ; a /= 2 {
		if _, err := img.ReadMemory(start, process.ProcessMemorySize(size+a)); err == nil {
			size += a
			break
		}
		if a == 0 {
			break
		}
	}

	data, err := img.ReadMemory(start, process.ProcessMemorySize(size))
	if err != nil {
		return "", err
	}

	options.StartAddress = start
	options.HighlightOffset = int(addr - start)
	options.HighlightLength = length
	return Dump(data, options), nil
}
