package lsputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestUTF16Len(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"ascii", "hello", 5},
		{"cyrillic", "Привет", 6},
		{"with_colon", "Активы:Кошелек", 14},
		{"surrogate_pair", "a\U00010400b", 4},
		{"emoji", "a😀b", 4},
		{"chinese", "hello世界", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UTF16Len(tt.input))
		})
	}
}

func TestUTF16ToByte(t *testing.T) {
	tests := []struct {
		name  string
		input string
		units int
		want  int
	}{
		{"empty", "", 0, 0},
		{"ascii_middle", "hello", 2, 2},
		{"cyrillic_middle", "Привет", 3, 6},
		{"account_name", "Активы:Кошелек", 7, 13},
		{"after_surrogate", "a\U00010400b", 3, 5},
		{"inside_surrogate", "a\U00010400b", 2, 5},
		{"out_of_bounds", "hello", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UTF16ToByte(tt.input, tt.units))
		})
	}
}

func TestByteToUTF16(t *testing.T) {
	assert.Equal(t, 3, ByteToUTF16("Привет", 6))
	assert.Equal(t, 7, ByteToUTF16("Активы:Кошелек", 13))
	assert.Equal(t, 4, ByteToUTF16("😀😀😀", 8))
}

func TestRuneColumns(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		units int
		runes int
	}{
		{"ascii", "2024-01-15 Shop", 11, 11},
		{"cyrillic", "15.01.2024 Кафе", 13, 13},
		{"emoji before cursor", "    ; 😀 tag", 9, 8},
		{"line end", "abc", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.runes, UTF16ToRune(tt.line, tt.units))
			assert.Equal(t, tt.units, RuneToUTF16(tt.line, tt.runes))
		})
	}

	assert.Equal(t, 3, UTF16ToRune("abc", 99), "clamped to the line end")
}

func TestText_Line(t *testing.T) {
	text := NewText("first\r\nвторой\n")

	assert.Equal(t, 3, text.LineCount())
	assert.Equal(t, "first", text.Line(0))
	assert.Equal(t, "второй", text.Line(1))
	assert.Equal(t, "", text.Line(2))
	assert.Equal(t, "", text.Line(-1))
	assert.Equal(t, "", text.Line(7))
}

func TestText_Cursor(t *testing.T) {
	text := NewText("2024-01-15 😀 Кафе\n    Активы")

	line, col := text.Cursor(pos(0, 15))
	assert.Equal(t, "2024-01-15 😀 Кафе", line)
	assert.Equal(t, 14, col)

	line, col = text.Cursor(pos(1, 6))
	assert.Equal(t, "    Активы", line)
	assert.Equal(t, 6, col)

	line, col = text.Cursor(pos(5, 3))
	assert.Equal(t, "", line)
	assert.Equal(t, 0, col)
}

func TestText_OffsetAndPosition(t *testing.T) {
	content := "hello\nАктивы:Кошелек  100\nworld"
	text := NewText(content)

	tests := []struct {
		name   string
		pos    protocol.Position
		offset int
	}{
		{"line0_start", pos(0, 0), 0},
		{"line0_middle", pos(0, 3), 3},
		{"line1_start", pos(1, 0), 6},
		{"line1_after_colon", pos(1, 7), 19},
		{"line2_start", pos(2, 0), 39},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, text.Offset(tt.pos))
			assert.Equal(t, tt.pos, text.Position(tt.offset))
		})
	}

	assert.Equal(t, len(content), text.Offset(pos(10, 0)))
	assert.Equal(t, pos(2, 5), text.Position(len(content)+4))
	assert.Equal(t, pos(0, 0), text.Position(-1))
}

func TestText_RuneRange(t *testing.T) {
	text := NewText("x\n    ; 😀 pro")

	r := text.RuneRange(1, 8, 11)
	assert.Equal(t, pos(1, 9), r.Start)
	assert.Equal(t, pos(1, 12), r.End)
}

func TestText_Replace(t *testing.T) {
	text := NewText("Активы:Кошелек  100 RUB\nРасходы:Еда  50 RUB")

	got := text.Replace(protocol.Range{Start: pos(0, 7), End: pos(0, 14)}, "Банк")
	assert.Equal(t, "Активы:Банк  100 RUB\nРасходы:Еда  50 RUB", got)

	got = NewText("hello world").Replace(protocol.Range{Start: pos(0, 6), End: pos(0, 0)}, "X")
	assert.Equal(t, "Xworld", got)
}

func TestApplyChanges(t *testing.T) {
	content := "line1\nline2\nline3"

	got := ApplyChanges(content, []protocol.TextDocumentContentChangeEvent{
		{Range: protocol.Range{Start: pos(1, 0), End: pos(1, 5)}, Text: "REPLACED"},
		{Range: protocol.Range{Start: pos(2, 5), End: pos(2, 5)}, Text: "!"},
	})
	assert.Equal(t, "line1\nREPLACED\nline3!", got)

	got = ApplyChanges(content, []protocol.TextDocumentContentChangeEvent{{Text: "new"}})
	assert.Equal(t, "new", got)
}
