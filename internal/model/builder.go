package model

import (
	"context"
	"hash/fnv"
	"iter"

	"github.com/juev/hledger-complete/internal/ast"
	"github.com/juev/hledger-complete/internal/parser"
)

type Options struct {
	// Source names where the tokens came from, usually a file path.
	Source string
	Parser parser.Options
}

// Build parses tokens and folds the result into a snapshot. Parse errors
// are returned for reporting only; the snapshot covers everything that
// could be understood.
func Build(tokens iter.Seq[parser.Token], opts Options) (*ParsedData, []parser.ParseError) {
	data, errs, _ := BuildContext(context.Background(), tokens, opts)
	return data, errs
}

func BuildText(text string, opts Options) (*ParsedData, []parser.ParseError) {
	return Build(parser.Tokenize(text), opts)
}

// BuildContext is Build with cooperative cancellation between parser
// chunks. A cancelled build returns a nil snapshot and ctx.Err().
func BuildContext(ctx context.Context, tokens iter.Seq[parser.Token], opts Options) (*ParsedData, []parser.ParseError, error) {
	_, data, errs, err := BuildJournal(ctx, tokens, opts)
	return data, errs, err
}

// BuildJournal is BuildContext that also returns the parsed journal, for
// callers that need its includes.
func BuildJournal(ctx context.Context, tokens iter.Seq[parser.Token], opts Options) (*ast.Journal, *ParsedData, []parser.ParseError, error) {
	h := fnv.New64a()
	hashed := func(yield func(parser.Token) bool) {
		for tok := range tokens {
			h.Write([]byte{byte(tok.Type)})
			h.Write([]byte(tok.Value))
			if !yield(tok) {
				return
			}
		}
	}

	journal, errs, err := parser.ParseContext(ctx, hashed, opts.Parser)
	if err != nil {
		return journal, nil, errs, err
	}
	return journal, FromJournal(journal, opts.Source, h.Sum64()), errs, nil
}

// FromJournal folds an already parsed journal into a snapshot. The
// fingerprint identifies the content: two journals with the same source
// and fingerprint are treated as the same unit by Merge.
func FromJournal(journal *ast.Journal, source string, fingerprint uint64) *ParsedData {
	b := &builder{s: newStats()}
	for _, dir := range journal.Directives {
		b.addDirective(dir)
	}
	for i := range journal.Transactions {
		b.addTransaction(&journal.Transactions[i])
	}
	return newParsedData([]*unit{{source: source, fingerprint: fingerprint, stats: b.s}})
}

type builder struct {
	s   *stats
	seq int
}

func (b *builder) addDirective(dir ast.Directive) {
	s := b.s
	switch d := dir.(type) {
	case ast.AccountDirective:
		s.accounts.declare(d.Account.Name)
		for _, tag := range d.Tags {
			s.useTag(tag.Name, tag.Value)
		}
	case ast.CommodityDirective:
		s.commodities.declare(d.Commodity.Symbol)
		if d.Format != "" {
			s.commodityFormats[d.Commodity.Symbol] = newCommodityFormat(d.Format)
		}
	case ast.DefaultCommodityDirective:
		sym := d.Amount.Commodity.Symbol
		s.commodities.declare(sym)
		if _, ok := s.commodityFormats[sym]; !ok && sym != "" {
			s.commodityFormats[sym] = newCommodityFormat(d.Amount.Text())
		}
	case ast.PriceDirective:
		s.commodities.use(d.Commodity.Symbol)
		s.commodities.use(d.Price.Commodity.Symbol)
	case ast.PayeeDirective:
		s.payees.declare(normalizePayee(d.Name))
	case ast.TagDirective:
		s.tags.declare(d.Name)
	}
}

func (b *builder) addTransaction(tx *ast.Transaction) {
	s := b.s
	date := tx.Date.String()
	s.useDate(date, tx.Date.Raw)

	payee := normalizePayee(tx.Payee)
	s.payees.use(payee)

	for _, tag := range tx.Tags {
		s.useTag(tag.Name, tag.Value)
	}

	accounts := make([]string, 0, len(tx.Postings))
	for _, p := range tx.Postings {
		s.accounts.use(p.Account.Name)
		accounts = append(accounts, p.Account.Name)
		if p.Amount != nil {
			s.commodities.use(p.Amount.Commodity.Symbol)
		}
		if p.Cost != nil {
			s.commodities.use(p.Cost.Amount.Commodity.Symbol)
		}
		if p.BalanceAssertion != nil {
			s.commodities.use(p.BalanceAssertion.Amount.Commodity.Symbol)
		}
		for _, tag := range p.Tags {
			s.useTag(tag.Name, tag.Value)
		}
	}

	// A single posting carries no shape worth suggesting.
	if len(tx.Postings) < 2 || payee == "" {
		return
	}

	key := NewTemplateKey(accounts)
	set := s.templates[payee]
	if set == nil {
		set = make(templateSet)
		s.templates[payee] = set
	}
	t, ok := set[key]
	if !ok {
		if len(set) >= MaxTemplatesPerPayee {
			set.evictOne()
		}
		b.seq++
		t = &TransactionTemplate{Payee: payee, Key: key, seq: b.seq}
		set[key] = t
	}
	t.UsageCount++
	t.Postings = skeleton(tx.Postings)
	if date > t.LastUsedDate {
		t.LastUsedDate = date
	}

	buf := s.recent[payee]
	buf.Push(RecentEntry{Key: key, Date: date})
	s.recent[payee] = buf
}

func skeleton(postings []ast.Posting) []TemplatePosting {
	out := make([]TemplatePosting, 0, len(postings))
	for _, p := range postings {
		tp := TemplatePosting{Account: p.Account.Name}
		if p.Amount != nil {
			tp.Amount = p.Amount.Text()
			tp.Commodity = p.Amount.Commodity.Symbol
		}
		out = append(out, tp)
	}
	return out
}
