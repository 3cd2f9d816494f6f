package completion

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/hledger-complete/internal/position"
)

func TestExtractSpan(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		ctx   position.Context
		start int
		query string
		tag   string
	}{
		{name: "empty line", line: "", ctx: position.LineStart, start: 0, query: ""},
		{name: "partial date", line: "2024-0", ctx: position.LineStart, start: 0, query: "2024-0"},
		{name: "payee", line: "2024-01-15 Gro", ctx: position.AfterDate, start: 11, query: "Gro"},
		{name: "payee after status and code", line: "2024-01-15 * (42) Gro", ctx: position.AfterDate, start: 18, query: "Gro"},
		{name: "payee after secondary date", line: "2024-01-15=2024-01-20 Sh", ctx: position.AfterDate, start: 22, query: "Sh"},
		{name: "cyrillic payee", line: "15.01.2024 Кафе", ctx: position.AfterDate, start: 11, query: "Кафе"},
		{name: "empty payee", line: "2024-01-15 ", ctx: position.AfterDate, start: 11, query: ""},
		{name: "account", line: "    Assets:Ca", ctx: position.InPosting, start: 4, query: "Assets:Ca"},
		{name: "account after status", line: "    * Assets:Ca", ctx: position.InPosting, start: 6, query: "Assets:Ca"},
		{name: "account with space", line: "\tAssets:Petty Ca", ctx: position.InPosting, start: 1, query: "Assets:Petty Ca"},
		{name: "finished account", line: "    Assets:Cash  ", ctx: position.InPosting, start: 4, query: "Assets:Cash"},
		{name: "commodity", line: "    Assets:Cash  100 EU", ctx: position.AfterAmount, start: 21, query: "EU"},
		{name: "quoted commodity", line: `    Assets:Cash  100 "My Cur`, ctx: position.AfterAmount, start: 21, query: "My Cur"},
		{name: "commodity not started", line: "    Assets:Cash  100 ", ctx: position.AfterAmount, start: 21, query: ""},
		{name: "tag key", line: "    ; pro", ctx: position.InComment, start: 6, query: "pro"},
		{name: "tag key after comma", line: "    ; a:1, cli", ctx: position.InComment, start: 11, query: "cli"},
		{name: "tag value", line: "    ; a:1, client:ac", ctx: position.InTagValue, start: 18, query: "ac", tag: "client"},
		{name: "tag value after space", line: "    ; client: ac", ctx: position.InTagValue, start: 14, query: "ac", tag: "client"},
		{name: "cyrillic tag value", line: "    ; проект:дом", ctx: position.InTagValue, start: 13, query: "дом", tag: "проект"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := position.Classify(tt.line, utf8.RuneCountInString(tt.line))
			require.NoError(t, err)
			require.Equal(t, tt.ctx, ctx, "classification")

			sp := extractSpan(ctx, tt.line)
			assert.Equal(t, tt.start, sp.Start)
			assert.Equal(t, tt.query, sp.Query)
			assert.Equal(t, tt.tag, sp.Tag)
		})
	}
}
