package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// sanitize drops control characters and invalid UTF-8 so a hostile title
// cannot break the terminal layout.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
		case r != '\t' && unicode.IsControl(r):
		case r == '\u00a0':
			b.WriteByte(' ')
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// truncate shortens s to maxWidth cells, wide characters included.
func truncate(s string, maxWidth int) string {
	return runewidth.Truncate(sanitize(s), maxWidth, "...")
}

// truncateAndPad truncates s and pads it to exactly width cells.
func truncateAndPad(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

// row places left and right at either end of width cells.
func row(left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}
