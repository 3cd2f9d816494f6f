package completion

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juev/hledger-complete/internal/fuzzy"
	"github.com/juev/hledger-complete/internal/model"
	"github.com/juev/hledger-complete/internal/position"
)

const sampleJournal = `account assets:cash
account expenses:food
payee Landlord
commodity EUR
tag project

2024-01-10 * Grocery Store
    expenses:food        $50.00
    assets:cash

2024-01-12 Grocery Store  ; project:home
    expenses:food        $30.00
    assets:checking

2024-01-15 Магазин
    expenses:food        100 RUB
    assets:cash
`

var fixedNow = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

func sampleData(t *testing.T) *model.ParsedData {
	t.Helper()
	data, errs := model.BuildText(sampleJournal, model.Options{Source: "sample.journal"})
	require.Empty(t, errs)
	return data
}

func newEngine(cfg Config) *Engine {
	return New(cfg, WithClock(func() time.Time { return fixedNow }))
}

func complete(t *testing.T, e *Engine, data *model.ParsedData, line string) Result {
	t.Helper()
	res, err := e.Complete(data, line, utf8.RuneCountInString(line))
	require.NoError(t, err)
	return res
}

func labels(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Label
	}
	return out
}

func TestDomainFor(t *testing.T) {
	tests := map[position.Context]Domain{
		position.LineStart:   DomainDates,
		position.AfterDate:   DomainPayees,
		position.InPosting:   DomainAccounts,
		position.AfterAmount: DomainCommodities,
		position.InComment:   DomainTags,
		position.InTagValue:  DomainTagValues,
		position.Forbidden:   DomainNone,
		position.Context(99): DomainNone,
	}
	for ctx, want := range tests {
		assert.Equal(t, want, DomainFor(ctx), ctx.String())
	}
	assert.Equal(t, "tag-values", DomainTagValues.String())
	assert.Equal(t, "none", DomainNone.String())
}

func TestComplete_Forbidden(t *testing.T) {
	e := newEngine(Config{})
	data := sampleData(t)

	for _, line := range []string{
		"    assets:cash  100.00  ",
		"    assets:cash  100",
		"2024-01-15 Shop | no",
		"acc",
	} {
		res := complete(t, e, data, line)
		assert.Equal(t, position.Forbidden, res.Context, line)
		assert.Equal(t, DomainNone, res.Domain, line)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items, line)
	}
}

func TestComplete_ColumnBeyondLine(t *testing.T) {
	res, err := newEngine(Config{}).Complete(sampleData(t), "2024-01-15 ", 40)
	require.NoError(t, err)
	assert.Equal(t, position.Forbidden, res.Context)
	assert.Empty(t, res.Items)
}

func TestComplete_NegativeColumn(t *testing.T) {
	_, err := newEngine(Config{}).Complete(sampleData(t), "2024", -1)
	assert.ErrorIs(t, err, position.ErrNegativeColumn)
}

func TestComplete_Payees(t *testing.T) {
	e := newEngine(Config{})
	res := complete(t, e, sampleData(t), "2024-01-16 Gro")

	assert.Equal(t, position.AfterDate, res.Context)
	assert.Equal(t, DomainPayees, res.Domain)
	assert.Equal(t, 11, res.Start)
	assert.Equal(t, "Gro", res.Query)
	require.NotEmpty(t, res.Items)

	top := res.Items[0]
	assert.Equal(t, "Grocery Store", top.Label)
	assert.Equal(t, "Payee (2) + template", top.Detail)
	assert.Equal(t, "Grocery Store\n    expenses:food  $30.00\n    assets:checking\n", top.InsertText)
	assert.False(t, top.Snippet)
	assert.Equal(t, "000000_1_Grocery Store", top.SortKey)
	assert.Equal(t, fuzzy.ScorePrefix+100000*3/13, top.Score)
}

func TestComplete_PayeeSnippets(t *testing.T) {
	e := newEngine(Config{Snippets: true})
	res := complete(t, e, sampleData(t), "2024-01-16 Gro")
	require.NotEmpty(t, res.Items)

	assert.True(t, res.Items[0].Snippet)
	assert.Equal(t, "Grocery Store\n    ${1:expenses:food}  ${2:\\$30.00}\n    ${3:assets:checking}\n$0", res.Items[0].InsertText)
}

func TestComplete_DeclaredPayeeWithoutTemplate(t *testing.T) {
	res := complete(t, newEngine(Config{}), sampleData(t), "2024-01-16 Land")
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Landlord", res.Items[0].Label)
	assert.Equal(t, "Payee", res.Items[0].Detail)
	assert.Empty(t, res.Items[0].InsertText)
	assert.Equal(t, "000000_0_Landlord", res.Items[0].SortKey)
}

func TestComplete_CyrillicPayee(t *testing.T) {
	res := complete(t, newEngine(Config{Locale: "ru"}), sampleData(t), "15.01.2024 маг")
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "Магазин", res.Items[0].Label)
	assert.Equal(t, 11, res.Start)
}

func TestComplete_Accounts(t *testing.T) {
	e := newEngine(Config{})
	data := sampleData(t)

	res := complete(t, e, data, "    as")
	assert.Equal(t, DomainAccounts, res.Domain)
	assert.Equal(t, 4, res.Start)
	assert.Equal(t, []string{"assets:cash", "assets:checking"}, labels(res.Items))
	assert.Equal(t, "Account (2)", res.Items[0].Detail)
	assert.Equal(t, "000000_0_assets:cash", res.Items[0].SortKey)
	assert.Equal(t, "000001_1_assets:checking", res.Items[1].SortKey)

	res = complete(t, e, data, "    exfo")
	assert.Equal(t, []string{"expenses:food"}, labels(res.Items))
}

func TestComplete_AccountsEmptyQueryKeepsAllInOrder(t *testing.T) {
	res := complete(t, newEngine(Config{}), sampleData(t), "    ")
	assert.Equal(t, []string{"assets:cash", "assets:checking", "expenses:food"}, labels(res.Items))
}

func TestComplete_AccountTies(t *testing.T) {
	data, _ := model.BuildText(`account assets:bank

2024-01-01 x
    assets:bonk  1
    equity
`, model.Options{})

	res := complete(t, newEngine(Config{}), data, "    assets:b")
	require.Len(t, res.Items, 2)
	assert.Equal(t, "assets:bonk", res.Items[0].Label, "usage outranks declaration")

	data, _ = model.BuildText(`account assets:bonk

2024-01-01 x
    assets:bonk  1
    equity

2024-01-02 y
    assets:bank  1
    equity
`, model.Options{})
	res = complete(t, newEngine(Config{}), data, "    assets:b")
	require.Len(t, res.Items, 2)
	assert.Equal(t, "assets:bonk", res.Items[0].Label, "declaration breaks equal usage")
}

func TestComplete_Commodities(t *testing.T) {
	res := complete(t, newEngine(Config{}), sampleData(t), "    expenses:food  100 E")
	assert.Equal(t, position.AfterAmount, res.Context)
	assert.Equal(t, DomainCommodities, res.Domain)
	assert.Equal(t, []string{"EUR"}, labels(res.Items))
	assert.Equal(t, 23, res.Start)

	res = complete(t, newEngine(Config{}), sampleData(t), "    expenses:food  100 ")
	assert.ElementsMatch(t, []string{"$", "EUR", "RUB"}, labels(res.Items))
}

func TestComplete_CommodityDetailShowsFormat(t *testing.T) {
	data, errs := model.BuildText("commodity 1.000,00 EUR\n\n2024-01-01 x\n    a  5 EUR\n    b\n", model.Options{})
	require.Empty(t, errs)

	res := complete(t, newEngine(Config{}), data, "    a  5 E")
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Commodity (1), format 1.000,00 EUR", res.Items[0].Detail)
}

func TestQuoteCommodity(t *testing.T) {
	assert.Equal(t, "EUR", quoteCommodity("EUR"))
	assert.Equal(t, "€", quoteCommodity("€"))
	assert.Equal(t, `"My Currency"`, quoteCommodity("My Currency"))
	assert.Equal(t, `"ABC1"`, quoteCommodity("ABC1"))
}

func TestComplete_Tags(t *testing.T) {
	res := complete(t, newEngine(Config{}), sampleData(t), "    ; pro")
	assert.Equal(t, DomainTags, res.Domain)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "project", res.Items[0].Label)
	assert.Equal(t, "project:", res.Items[0].InsertText)
	assert.Equal(t, "Tag (1)", res.Items[0].Detail)
}

func TestComplete_TagValues(t *testing.T) {
	res := complete(t, newEngine(Config{}), sampleData(t), "    ; project:h")
	assert.Equal(t, DomainTagValues, res.Domain)
	assert.Equal(t, []string{"home"}, labels(res.Items))
	assert.Equal(t, "Tag value for project (1)", res.Items[0].Detail)

	res = complete(t, newEngine(Config{}), sampleData(t), "    ; unknown:h")
	assert.Empty(t, res.Items)
}

func TestComplete_Dates(t *testing.T) {
	e := newEngine(Config{})
	data := sampleData(t)

	res, err := e.Complete(data, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DomainDates, res.Domain)
	assert.Equal(t, []string{
		"2024-02-01", "2024-01-31", "2024-02-02",
		"2024-01-15", "2024-01-12", "2024-01-10",
	}, labels(res.Items))
	assert.Equal(t, "today", res.Items[0].Detail)
	assert.Equal(t, "from history", res.Items[3].Detail)
	assert.Equal(t, "000000_0_2024-02-01", res.Items[0].SortKey)
	assert.Equal(t, "000003_1_2024-01-15", res.Items[3].SortKey)

	res = complete(t, e, data, "2024-01-1")
	assert.Equal(t, []string{"2024-01-10", "2024-01-12", "2024-01-15", "2024-01-31"}, labels(res.Items))
}

func TestComplete_DatesFollowJournalFormat(t *testing.T) {
	data, _ := model.BuildText("15.01.2024 Кафе\n    a  1\n    b\n", model.Options{})

	res, err := newEngine(Config{DayFirst: true}).Complete(data, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"01.02.2024", "31.01.2024", "02.02.2024", "15.01.2024"}, labels(res.Items))
}

func TestComplete_MaxResults(t *testing.T) {
	var journal string
	for i := range 20 {
		journal += fmt.Sprintf("account expenses:item%02d\n", i)
	}
	data, _ := model.BuildText(journal, model.Options{})

	res := complete(t, newEngine(Config{MaxResults: 5}), data, "    exp")
	assert.Len(t, res.Items, 5)

	res = complete(t, newEngine(Config{}), data, "    exp")
	assert.Len(t, res.Items, 20)
}

func TestComplete_NilData(t *testing.T) {
	e := newEngine(Config{})
	res := complete(t, e, nil, "    as")
	assert.Empty(t, res.Items)

	res = complete(t, e, nil, "")
	assert.Len(t, res.Items, 3)
}

func TestComplete_SnapshotChangesAreSeen(t *testing.T) {
	e := newEngine(Config{})
	before, _ := model.BuildText("account assets:cash\n", model.Options{Source: "a"})
	after, _ := model.BuildText("account assets:cash\naccount assets:bank\n", model.Options{Source: "a"})

	assert.Equal(t, []string{"assets:cash"}, labels(complete(t, e, before, "    as").Items))
	assert.Equal(t, []string{"assets:bank", "assets:cash"}, labels(complete(t, e, after, "    as").Items))
}

func TestComplete_SkipsTheLineBeingTyped(t *testing.T) {
	text := sampleJournal + "\n2024-02-01 Gro\n    exp"
	data, _ := model.BuildText(text, model.Options{})
	e := newEngine(Config{})

	run := func(line string) []string {
		res, err := e.Complete(data, line, utf8.RuneCountInString(line), LineInData())
		require.NoError(t, err)
		return labels(res.Items)
	}

	assert.Equal(t, []string{"expenses:food"}, run("    exp"))
	assert.Equal(t, []string{"Grocery Store"}, run("2024-02-01 Gro"))
	assert.Contains(t, run("    assets:cash"), "assets:cash", "a real name is kept even when fully typed")
}

func TestComplete_ExactMatchUsedOnce(t *testing.T) {
	data, errs := model.BuildText("2024-01-01 Bakery\n    expenses:bread  5 EUR\n    assets:cash\n", model.Options{})
	require.Empty(t, errs)
	e := newEngine(Config{})

	tests := []struct {
		line string
		want string
	}{
		{line: "2024-02-01 Bakery", want: "Bakery"},
		{line: "    expenses:bread", want: "expenses:bread"},
		{line: "    expenses:bre", want: "expenses:bread"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			res := complete(t, e, data, tt.line)
			require.NotEmpty(t, res.Items)
			assert.Equal(t, tt.want, res.Items[0].Label)
		})
	}

	res := complete(t, e, data, "2024-02-01 Bakery")
	assert.True(t, strings.HasPrefix(res.Items[0].InsertText, "Bakery\n"), "the template is kept")
	assert.Contains(t, res.Items[0].InsertText, "expenses:bread")
}
