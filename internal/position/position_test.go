package position

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// atEnd classifies with the cursor after the last rune of line.
func atEnd(t *testing.T, line string) Context {
	t.Helper()
	ctx, err := Classify(line, utf8.RuneCountInString(line))
	require.NoError(t, err)
	return ctx
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Context
	}{
		{name: "empty line", line: "", want: LineStart},
		{name: "partial year", line: "20", want: LineStart},
		{name: "partial date", line: "2024-01", want: LineStart},
		{name: "full date without separator", line: "2024-01-15", want: LineStart},
		{name: "after date", line: "2024-01-15 ", want: AfterDate},
		{name: "typing payee", line: "2024-01-15 Gro", want: AfterDate},
		{name: "after status", line: "2024-01-15 * Gro", want: AfterDate},
		{name: "after secondary date", line: "2024-01-15=2024-01-20 Sh", want: AfterDate},
		{name: "year last date", line: "15.01.2024 Кафе", want: AfterDate},
		{name: "payee with hash", line: "2024-01-15 Invoice #12", want: AfterDate},
		{name: "in note", line: "2024-01-15 Shop | no", want: Forbidden},
		{name: "date glued to text", line: "2024-01-15x", want: Forbidden},
		{name: "directive keyword", line: "acc", want: Forbidden},
		{name: "header comment", line: "2024-01-15 Shop  ; rem", want: InComment},
		{name: "header tag value", line: "2024-01-15 Shop  ; trip:pa", want: InTagValue},
		{name: "top level comment", line: "; note", want: InComment},
		{name: "top level hash comment", line: "# note", want: InComment},

		{name: "indent only", line: "    ", want: InPosting},
		{name: "typing account", line: "    Assets:Ca", want: InPosting},
		{name: "account with space", line: "    Assets:Petty Ca", want: InPosting},
		{name: "after separator", line: "    Assets:Cash  ", want: InPosting},
		{name: "after tab separator", line: "\tAssets:Cash\t", want: InPosting},
		{name: "status then account", line: "    * Assets:Ca", want: InPosting},
		{name: "typing amount", line: "    Assets:Cash  100", want: Forbidden},
		{name: "after amount one space", line: "    Assets:Cash    100.00 ", want: AfterAmount},
		{name: "after amount two spaces", line: "    Assets:Cash    100.00  ", want: Forbidden},
		{name: "typing commodity", line: "    Assets:Cash  100.00 EU", want: AfterAmount},
		{name: "typing quoted commodity", line: "    Assets:Cash  100 \"My Cur", want: AfterAmount},
		{name: "after negative prefixed amount", line: "    Assets:Cash  -$1,000.50 ", want: AfterAmount},
		{name: "after commodity and space", line: "    Assets:Cash  100 EUR ", want: Forbidden},
		{name: "after cost operator", line: "    Assets:Cash  100 EUR @ ", want: Forbidden},
		{name: "posting comment", line: "    Assets:Cash  100 EUR  ; paid", want: InComment},
		{name: "hash in account name", line: "    Assets:Bank #1", want: InPosting},
		{name: "hash after account", line: "    Assets:Bank #", want: InPosting},
		{name: "posting tag value", line: "    Assets:Cash  ; client:ac", want: InTagValue},
		{name: "second tag value", line: "    ; a:1, client:", want: InTagValue},
		{name: "tag key after comma", line: "    ; a:1, cli", want: InComment},
		{name: "tag value with spaces", line: "    ; note:some words", want: InTagValue},
		{name: "cyrillic tag value", line: "    ; проект:дом", want: InTagValue},
		{name: "comment line in posting", line: "    ; just text", want: InComment},
		{name: "unicode account", line: "    Расходы:Прод", want: InPosting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, atEnd(t, tt.line))
		})
	}
}

func TestClassify_OnlyPrefixMatters(t *testing.T) {
	line := "    Assets:Cash    100.00  ; comment"

	tests := []struct {
		column int
		want   Context
	}{
		{column: 0, want: LineStart},
		{column: 4, want: InPosting},
		{column: 8, want: InPosting},
		{column: 19, want: InPosting},
		{column: 25, want: Forbidden},
		{column: 26, want: AfterAmount},
		{column: 27, want: Forbidden},
		{column: 29, want: InComment},
	}

	for _, tt := range tests {
		got, err := Classify(line, tt.column)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "column %d", tt.column)
	}
}

func TestClassify_RuneColumns(t *testing.T) {
	line := "2024-01-15 Магазин"
	got, err := Classify(line, utf8.RuneCountInString("2024-01-15 Маг"))
	require.NoError(t, err)
	assert.Equal(t, AfterDate, got)
}

func TestClassify_ColumnBeyondLine(t *testing.T) {
	got, err := Classify("2024-01-15 ", 40)
	require.NoError(t, err)
	assert.Equal(t, Forbidden, got)
}

func TestClassify_NegativeColumn(t *testing.T) {
	_, err := Classify("2024-01-15", -1)
	assert.ErrorIs(t, err, ErrNegativeColumn)
}

func TestContext_String(t *testing.T) {
	assert.Equal(t, "LineStart", LineStart.String())
	assert.Equal(t, "InTagValue", InTagValue.String())
	assert.Equal(t, "Forbidden", Forbidden.String())
	assert.Equal(t, "Forbidden", Context(42).String())
	assert.Equal(t, Forbidden, Context(0))
}
