package model

import (
	"cmp"
	"slices"
)

// MaxTemplatesPerPayee bounds how many distinct shapes are kept per payee.
const MaxTemplatesPerPayee = 5

// TemplatePosting is one line of a template skeleton. Amount is the amount
// as last written, commodity included; empty means the amount was inferred.
type TemplatePosting struct {
	Account   string
	Amount    string
	Commodity string
}

// TransactionTemplate is a recurring transaction shape of one payee.
type TransactionTemplate struct {
	Payee        string
	Key          TemplateKey
	Postings     []TemplatePosting
	UsageCount   int
	LastUsedDate string

	// seq orders creation inside one build; eviction uses it as the last
	// tiebreak.
	seq int
}

func (t *TransactionTemplate) clone() *TransactionTemplate {
	c := *t
	c.Postings = slices.Clone(t.Postings)
	return &c
}

// templateSet holds the templates of one payee.
type templateSet map[TemplateKey]*TransactionTemplate

// evictOne removes the least used template; ties go to the oldest
// lastUsedDate, then to the earliest created.
func (s templateSet) evictOne() {
	var victim *TransactionTemplate
	for _, t := range s {
		if victim == nil || evictsBefore(t, victim) {
			victim = t
		}
	}
	if victim != nil {
		delete(s, victim.Key)
	}
}

func evictsBefore(a, b *TransactionTemplate) bool {
	if a.UsageCount != b.UsageCount {
		return a.UsageCount < b.UsageCount
	}
	if a.LastUsedDate != b.LastUsedDate {
		return a.LastUsedDate < b.LastUsedDate
	}
	return a.seq < b.seq
}

// recap trims a combined set back to MaxTemplatesPerPayee. Creation order
// has no meaning across sources, so the final tiebreak is the key.
func (s templateSet) recap() {
	if len(s) <= MaxTemplatesPerPayee {
		return
	}
	ranked := s.ranked()
	for _, t := range ranked[MaxTemplatesPerPayee:] {
		delete(s, t.Key)
	}
}

// ranked orders templates best first: most used, most recently used,
// then by key.
func (s templateSet) ranked() []*TransactionTemplate {
	out := make([]*TransactionTemplate, 0, len(s))
	for _, t := range s {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *TransactionTemplate) int {
		if c := cmp.Compare(b.UsageCount, a.UsageCount); c != 0 {
			return c
		}
		if c := cmp.Compare(b.LastUsedDate, a.LastUsedDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}
