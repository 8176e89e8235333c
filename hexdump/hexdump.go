// Package hexdump renders memory bytes for the trainer console, with
// optional highlighting of the range a pattern matched.
package hexdump

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/alinkof1/supertux-trainer/coloransi"
)

// Options controls the dump layout and colors.
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartAddress is the address of data[0], shown in the offset column
	StartAddress uint64

	// HighlightStart/HighlightLen mark a byte range to emphasize,
	// typically the matched pattern inside its surrounding context
	HighlightStart int
	HighlightLen   int

	OffsetColor    coloransi.ColorCode
	HexColor       coloransi.ColorCode
	HighlightColor coloransi.ColorCode
	ZeroColor      coloransi.ColorCode
	ASCIIColor     coloransi.ColorCode
}

// DefaultOptions returns the console's standard layout.
func DefaultOptions() Options {
	return Options{
		BytesPerLine:   16,
		ShowASCII:      true,
		HighlightStart: -1,
		OffsetColor:    coloransi.BrightBlack,
		HexColor:       coloransi.White,
		HighlightColor: coloransi.ColorLimeGreen,
		ZeroColor:      coloransi.BrightBlack,
		ASCIIColor:     coloransi.ColorTeal,
	}
}

// Dump renders data with the given options.
func Dump(data []byte, options Options) string {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	var sb strings.Builder
	for lineStart := 0; lineStart < len(data); lineStart += options.BytesPerLine {
		lineEnd := lineStart + options.BytesPerLine
		if lineEnd > len(data) {
			lineEnd = len(data)
		}
		formatLine(&sb, data, lineStart, lineEnd, options)
	}
	return sb.String()
}

// DumpHighlight renders data starting at addr, emphasizing
// [highlightStart, highlightStart+highlightLen).
func DumpHighlight(data []byte, addr uint64, highlightStart, highlightLen int) string {
	options := DefaultOptions()
	options.StartAddress = addr
	options.HighlightStart = highlightStart
	options.HighlightLen = highlightLen
	return Dump(data, options)
}

func formatLine(sb *strings.Builder, data []byte, start, end int, options Options) {
	sb.WriteString(coloransi.Foreground(options.OffsetColor,
		fmt.Sprintf("%012x", options.StartAddress+uint64(start))))
	sb.WriteString("  ")

	for i := start; i < start+options.BytesPerLine; i++ {
		if i >= end {
			sb.WriteString("   ")
			continue
		}
		sb.WriteString(formatByte(data[i], i, options))
		sb.WriteByte(' ')
	}

	if options.ShowASCII {
		sb.WriteString(" |")
		for i := start; i < end; i++ {
			c := rune(data[i])
			if !unicode.IsPrint(c) || c > 126 {
				c = '.'
			}
			sb.WriteString(coloransi.Foreground(options.ASCIIColor, string(c)))
		}
		sb.WriteByte('|')
	}

	sb.WriteByte('\n')
}

func formatByte(b byte, pos int, options Options) string {
	text := fmt.Sprintf("%02x", b)

	if options.HighlightStart >= 0 &&
		pos >= options.HighlightStart &&
		pos < options.HighlightStart+options.HighlightLen {
		return coloransi.Foreground(options.HighlightColor, text)
	}
	if b == 0 {
		return coloransi.Foreground(options.ZeroColor, text)
	}
	return coloransi.Foreground(options.HexColor, text)
}
