// Package completion turns a cursor position in a journal line into ranked
// suggestions drawn from a ParsedData snapshot.
package completion

import (
	"fmt"
	"slices"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/juev/hledger-complete/internal/fuzzy"
	"github.com/juev/hledger-complete/internal/model"
	"github.com/juev/hledger-complete/internal/position"
)

const DefaultMaxResults = 50

// Domain is the kind of candidate a context asks for.
type Domain int

const (
	DomainNone Domain = iota
	DomainDates
	DomainPayees
	DomainAccounts
	DomainCommodities
	DomainTags
	DomainTagValues
)

func (d Domain) String() string {
	switch d {
	case DomainDates:
		return "dates"
	case DomainPayees:
		return "payees"
	case DomainAccounts:
		return "accounts"
	case DomainCommodities:
		return "commodities"
	case DomainTags:
		return "tags"
	case DomainTagValues:
		return "tag-values"
	}
	return "none"
}

// DomainFor maps a context to its candidate domain. Forbidden has none.
func DomainFor(ctx position.Context) Domain {
	switch ctx {
	case position.LineStart:
		return DomainDates
	case position.AfterDate:
		return DomainPayees
	case position.InPosting:
		return DomainAccounts
	case position.AfterAmount:
		return DomainCommodities
	case position.InComment:
		return DomainTags
	case position.InTagValue:
		return DomainTagValues
	case position.Forbidden:
		return DomainNone
	}
	return DomainNone
}

type Item struct {
	Label  string
	Detail string
	// InsertText replaces the span when it differs from Label.
	InsertText string
	// Snippet marks InsertText as snippet syntax with tab stops.
	Snippet bool
	Domain  Domain
	Score   int
	// SortKey orders items as ranked: fuzzy rank, then domain priority.
	SortKey string
}

// Result is the answer for one cursor position. Items replace the runes
// of the line from Start to the cursor.
type Result struct {
	Context position.Context
	Domain  Domain
	Start   int
	Query   string
	Items   []Item
}

type Config struct {
	// MaxResults caps the returned items.
	MaxResults int
	// Locale is a BCP 47 tag for matching and ordering.
	Locale       string
	CacheCeiling int
	// DayFirst renders year-last dates as DD.MM.YYYY.
	DayFirst bool
	// Snippets renders payee templates with tab stops.
	Snippets bool
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMatcher shares a matcher, and its caches, between engines.
func WithMatcher(m *fuzzy.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg     Config
	matcher *fuzzy.Matcher
	logger  *zap.Logger
	now     func() time.Time
}

func New(cfg Config, opts ...Option) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.matcher == nil {
		e.matcher = fuzzy.New(fuzzy.Config{Locale: cfg.Locale, CacheCeiling: cfg.CacheCeiling})
	}
	return e
}

// CallOption tunes a single Complete call.
type CallOption func(*call)

type call struct {
	lineInData bool
}

// LineInData tells Complete that data was built from text that holds the
// line itself. A name that only this line contributes is then left out,
// since offering it would just echo the query.
func LineInData() CallOption {
	return func(c *call) { c.lineInData = true }
}

// Complete classifies the cursor at column, counted in runes, and ranks
// the candidates of the matching domain. A Forbidden position yields no
// items. Only a negative column is an error.
func (e *Engine) Complete(data *model.ParsedData, line string, column int, opts ...CallOption) (Result, error) {
	var c call
	for _, opt := range opts {
		opt(&c)
	}

	ctx, err := position.Classify(line, column)
	if err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	res := Result{Context: ctx, Domain: DomainFor(ctx), Start: column, Items: []Item{}}
	if res.Domain == DomainNone {
		return res, nil
	}

	sp := extractSpan(ctx, string([]rune(line)[:column]))
	res.Start, res.Query = sp.Start, sp.Query

	cands := e.candidates(data, res.Domain, sp)
	matches := e.matcher.Match(sp.Query, cands.labels, fuzzy.Options{
		Limit:     e.cfg.MaxResults + 1,
		Usage:     cands.usage,
		Preferred: cands.preferred,
		Set:       cands.set,
		Version:   cands.version,
	})
	if c.lineInData && cands.echo != nil {
		matches = slices.DeleteFunc(matches, func(m fuzzy.Match) bool { return cands.echo(m.Index, sp.Query) })
	}
	if len(matches) > e.cfg.MaxResults {
		matches = matches[:e.cfg.MaxResults]
	}

	res.Items = make([]Item, len(matches))
	for rank, m := range matches {
		item := cands.build(m.Index)
		item.Domain = res.Domain
		item.Score = m.Score
		item.SortKey = fmt.Sprintf("%06d_%d_%s", rank, cands.priority(m.Index), m.Item)
		res.Items[rank] = item
	}

	e.logger.Debug("completion",
		zap.Stringer("context", ctx),
		zap.Stringer("domain", res.Domain),
		zap.String("query", sp.Query),
		zap.Int("candidates", len(cands.labels)),
		zap.Int("items", len(res.Items)),
	)
	return res, nil
}

// Purge drops the matcher caches.
func (e *Engine) Purge() {
	e.matcher.Purge()
}

type candidates struct {
	set       string
	version   uint64
	labels    []string
	usage     map[string]int
	preferred func(string) bool
	priority  func(i int) int
	build     func(i int) Item
	// echo reports whether candidate i is the query itself and its single
	// use can only be the line being edited.
	echo      func(i int, query string) bool
}

func (e *Engine) candidates(data *model.ParsedData, domain Domain, sp span) candidates {
	switch domain {
	case DomainDates:
		return e.dateCandidates(data)
	case DomainPayees:
		return e.payeeCandidates(data)
	case DomainAccounts:
		return named(data, "accounts", data.Accounts(), "Account", data.AccountCount, data.IsDefinedAccount, nil)
	case DomainCommodities:
		return commodityCandidates(data)
	case DomainTags:
		return named(data, "tags", data.TagKeys(), "Tag", data.TagCount, data.IsDeclaredTag, func(s string) string { return s + ":" })
	case DomainTagValues:
		count := func(v string) int { return data.TagValueCount(sp.Tag, v) }
		return named(data, "tag-values:"+sp.Tag, data.TagValues(sp.Tag), "Tag value for "+sp.Tag, count, nil, nil)
	}
	return candidates{}
}

// named builds the candidates of a plain name domain. Declared names rank
// before merely used ones at equal score.
func named(data *model.ParsedData, set string, labels []string, detail string, count func(string) int, declared func(string) bool, insert func(string) string) candidates {
	usage := make(map[string]int, len(labels))
	for _, l := range labels {
		if n := count(l); n > 0 {
			usage[l] = n
		}
	}
	isDeclared := func(s string) bool { return declared != nil && declared(s) }

	return candidates{
		set:       set,
		version:   data.Version(),
		labels:    labels,
		usage:     usage,
		preferred: isDeclared,
		priority: func(i int) int {
			if isDeclared(labels[i]) {
				return 0
			}
			return 1
		},
		echo: func(i int, query string) bool {
			return labels[i] == query && usage[labels[i]] == 1 && !isDeclared(labels[i])
		},
		build: func(i int) Item {
			label := labels[i]
			item := Item{Label: label, Detail: formatDetailWithCount(detail, label, usage)}
			if insert != nil {
				if text := insert(label); text != label {
					item.InsertText = text
				}
			}
			return item
		},
	}
}

// commodityCandidates shows the declared display format next to the usage.
func commodityCandidates(data *model.ParsedData) candidates {
	c := named(data, "commodities", data.Commodities(), "Commodity", data.CommodityCount, data.IsDeclaredCommodity, quoteCommodity)
	build := c.build
	c.build = func(i int) Item {
		item := build(i)
		if f, ok := data.CommodityFormat(c.labels[i]); ok && f.Sample != "" {
			item.Detail += ", format " + f.Sample
		}
		return item
	}
	return c
}

func (e *Engine) payeeCandidates(data *model.ParsedData) candidates {
	c := named(data, "payees", data.Payees(), "Payee", data.PayeeCount, data.IsDeclaredPayee, nil)
	c.build = func(i int) Item {
		payee := c.labels[i]
		item := Item{Label: payee}
		t, ok := bestTemplate(data, payee)
		if ok {
			item.InsertText = RenderTemplate(payee, t.Postings, e.cfg.Snippets)
			item.Snippet = e.cfg.Snippets
		}
		item.Detail = formatPayeeDetailWithCount(payee, c.usage, ok)
		return item
	}
	return c
}

// Relative dates come first and stay first on an empty query.
func (e *Engine) dateCandidates(data *model.ParsedData) candidates {
	format := DetectDateFormat(data.DateSample(), e.cfg.DayFirst)
	dates := dateCandidates(e.now(), data.Dates(), format)

	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.label
	}
	relative := func(i int) bool { return i < 3 }
	preferred := make(map[string]bool, 3)
	for i := range 3 {
		preferred[labels[i]] = true
	}

	return candidates{
		set:       "dates",
		labels:    labels,
		preferred: func(s string) bool { return preferred[s] },
		priority: func(i int) int {
			if relative(i) {
				return 0
			}
			return 1
		},
		build: func(i int) Item {
			return Item{Label: dates[i].label, Detail: dates[i].detail}
		},
	}
}

func formatDetailWithCount(baseDetail, label string, counts map[string]int) string {
	if count := counts[label]; count > 0 {
		return fmt.Sprintf("%s (%d)", baseDetail, count)
	}
	return baseDetail
}

func formatPayeeDetailWithCount(payee string, counts map[string]int, hasTemplate bool) string {
	count := counts[payee]

	if count > 0 && hasTemplate {
		return fmt.Sprintf("Payee (%d) + template", count)
	}
	if count > 0 {
		return fmt.Sprintf("Payee (%d)", count)
	}
	if hasTemplate {
		return "Payee + template"
	}
	return "Payee"
}

// quoteCommodity quotes symbols that contain anything but letters and
// currency signs.
func quoteCommodity(symbol string) string {
	for _, r := range symbol {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Sc, r) {
			return `"` + symbol + `"`
		}
	}
	return symbol
}
