// Package lsputil maps between LSP positions, counted in UTF-16 code units,
// and the rune columns and byte offsets used by the rest of the module.
//
// Out-of-range positions are clamped: a line past the end maps to the end
// of the text and a character past the end of its line to the line end.
package lsputil

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Text is an immutable document with a line index.
type Text struct {
	content    string
	lines      []string
	lineStarts []int
}

func NewText(content string) *Text {
	t := &Text{content: content}
	t.lines = strings.Split(content, "\n")
	t.lineStarts = make([]int, len(t.lines))

	offset := 0
	for i, line := range t.lines {
		t.lineStarts[i] = offset
		offset += len(line) + 1
	}
	return t
}

func (t *Text) Content() string { return t.content }

func (t *Text) LineCount() int { return len(t.lines) }

// Line returns line n without its terminator, or "" when out of range.
func (t *Text) Line(n int) string {
	if n < 0 || n >= len(t.lines) {
		return ""
	}
	return strings.TrimSuffix(t.lines[n], "\r")
}

// Cursor returns the line at pos and the cursor column in runes.
func (t *Text) Cursor(pos protocol.Position) (string, int) {
	line := t.Line(int(pos.Line))
	return line, UTF16ToRune(line, int(pos.Character))
}

// Offset converts pos to a byte offset into the content.
func (t *Text) Offset(pos protocol.Position) int {
	n := int(pos.Line)
	if n >= len(t.lines) {
		return len(t.content)
	}
	return t.lineStarts[n] + UTF16ToByte(t.lines[n], int(pos.Character))
}

// Position converts a byte offset into an LSP position.
func (t *Text) Position(offset int) protocol.Position {
	if offset <= 0 {
		return protocol.Position{}
	}
	if offset >= len(t.content) {
		last := len(t.lines) - 1
		return protocol.Position{Line: uint32(last), Character: uint32(UTF16Len(t.lines[last]))}
	}

	n := sort.Search(len(t.lineStarts), func(i int) bool {
		return t.lineStarts[i] > offset
	}) - 1
	n = max(n, 0)

	return protocol.Position{
		Line:      uint32(n),
		Character: uint32(ByteToUTF16(t.lines[n], offset-t.lineStarts[n])),
	}
}

// RuneRange is the LSP range covering runes [start, end) of line n.
func (t *Text) RuneRange(n, start, end int) protocol.Range {
	line := t.Line(n)
	return protocol.Range{
		Start: protocol.Position{Line: uint32(n), Character: uint32(RuneToUTF16(line, start))},
		End:   protocol.Position{Line: uint32(n), Character: uint32(RuneToUTF16(line, end))},
	}
}

// Replace returns the content with r replaced by text. A reversed range
// is swapped.
func (t *Text) Replace(r protocol.Range, text string) string {
	start, end := t.Offset(r.Start), t.Offset(r.End)
	if start > end {
		start, end = end, start
	}
	return t.content[:start] + text + t.content[end:]
}

// ApplyChanges applies editor changes in order. A change with an empty
// range and no range length replaces the whole content.
func ApplyChanges(content string, changes []protocol.TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if isFullChange(change) {
			content = change.Text
			continue
		}
		content = NewText(content).Replace(change.Range, change.Text)
	}
	return content
}

func isFullChange(c protocol.TextDocumentContentChangeEvent) bool {
	return c.Range == (protocol.Range{}) && c.RangeLength == 0
}

func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

// UTF16ToByte converts a UTF-16 offset within s to a byte offset. An
// offset inside a surrogate pair rounds up to the end of the rune.
func UTF16ToByte(s string, units int) int {
	b, u := 0, 0
	for _, r := range s {
		if u >= units {
			break
		}
		b += utf8.RuneLen(r)
		u += utf16Width(r)
	}
	return b
}

func ByteToUTF16(s string, offset int) int {
	b, u := 0, 0
	for _, r := range s {
		if b >= offset {
			break
		}
		b += utf8.RuneLen(r)
		u += utf16Width(r)
	}
	return u
}

// UTF16ToRune converts a UTF-16 offset within s to a rune column.
func UTF16ToRune(s string, units int) int {
	return utf8.RuneCountInString(s[:UTF16ToByte(s, units)])
}

// RuneToUTF16 converts a rune column within s to a UTF-16 offset.
func RuneToUTF16(s string, column int) int {
	n, u := 0, 0
	for _, r := range s {
		if n >= column {
			break
		}
		n++
		u += utf16Width(r)
	}
	return u
}

func utf16Width(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
