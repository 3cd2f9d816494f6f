// Package fuzzy ranks candidate strings against a typed query.
//
// Scores fall into bands: an exact match beats every prefix match, and a
// prefix match beats every subsequence match. Within the prefix band a
// shorter item scores higher; within the subsequence band fewer and smaller
// gaps and an earlier first match score higher. Items that do not contain
// the query as a subsequence are dropped.
package fuzzy

import (
	"cmp"
	"hash/fnv"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	ScoreExact  = 300000
	ScorePrefix = 200000
	// subsequence scores stay below ScorePrefix.
	scoreSubsequence = 100000

	gapOpenPenalty   = 1000
	gapExtendPenalty = 10
	startPenalty     = 100

	DefaultCacheCeiling = 256
	indexCacheSize      = 32
)

// Config configures a Matcher. Zero values select defaults.
type Config struct {
	// Locale is a BCP 47 tag used for lowercasing and ordering.
	Locale string
	// CacheCeiling bounds the result cache; once exceeded, the oldest
	// quarter of entries is dropped.
	CacheCeiling int
}

// Options describe one Match call.
type Options struct {
	// Limit caps the number of results; zero means no cap.
	Limit int
	// Usage breaks score ties: more used items first.
	Usage map[string]int
	// Preferred breaks remaining ties: preferred items first.
	Preferred func(item string) bool
	// Set and Version identify the candidate list for caching. Callers
	// must change Version whenever the items change. A zero Version makes
	// the matcher hash the items itself.
	Set     string
	Version uint64
}

type Match struct {
	Item  string
	Score int
	// Index is the position of Item in the candidate list.
	Index int
}

type setKey struct {
	set     string
	version uint64
}

type resultKey struct {
	set   setKey
	query string
}

type scored struct {
	index int
	score int
}

// Matcher is safe for concurrent use.
type Matcher struct {
	tag     language.Tag
	ceiling int

	// caser and collator are stateful.
	mu       sync.Mutex
	caser    cases.Caser
	collator *collate.Collator

	indexes *lru.Cache[setKey, *index]
	results *lru.Cache[resultKey, []scored]
}

func New(cfg Config) *Matcher {
	tag := language.Und
	if cfg.Locale != "" {
		if t, err := language.Parse(cfg.Locale); err == nil {
			tag = t
		}
	}
	ceiling := cfg.CacheCeiling
	if ceiling <= 0 {
		ceiling = DefaultCacheCeiling
	}

	indexes, _ := lru.New[setKey, *index](indexCacheSize)
	// One slot of headroom: eviction is done here in batches, never by
	// the cache itself.
	results, _ := lru.New[resultKey, []scored](ceiling + 1)

	return &Matcher{
		tag:      tag,
		ceiling:  ceiling,
		caser:    cases.Lower(tag),
		collator: collate.New(tag),
		indexes:  indexes,
		results:  results,
	}
}

// Match ranks items against query. An empty query returns the items in
// their original order with a zero score.
func (m *Matcher) Match(query string, items []string, opts Options) []Match {
	if len(items) == 0 {
		return []Match{}
	}

	if query == "" {
		n := len(items)
		if opts.Limit > 0 {
			n = min(n, opts.Limit)
		}
		out := make([]Match, n)
		for i := range n {
			out[i] = Match{Item: items[i], Index: i}
		}
		return out
	}

	sk := setKey{set: opts.Set, version: opts.Version}
	if sk.version == 0 {
		sk.version = hashItems(items)
	}

	idx := m.indexFor(sk, items)
	q := []rune(m.fold(query))

	hits := m.lookup(sk, q, idx)
	return m.rank(hits, idx, opts)
}

// Purge empties both caches.
func (m *Matcher) Purge() {
	m.indexes.Purge()
	m.results.Purge()
}

// CachedResults reports the number of cached query results.
func (m *Matcher) CachedResults() int {
	return m.results.Len()
}

func (m *Matcher) fold(s string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caser.String(norm.NFC.String(s))
}

func (m *Matcher) indexFor(sk setKey, items []string) *index {
	if idx, ok := m.indexes.Get(sk); ok && len(idx.entries) == len(items) {
		return idx
	}
	idx := newIndex(items, m.fold)
	m.indexes.Add(sk, idx)
	return idx
}

// lookup returns the matches of q, reusing the cached result of the
// longest cached prefix of q as the candidate pool.
func (m *Matcher) lookup(sk setKey, q []rune, idx *index) []scored {
	key := resultKey{set: sk, query: string(q)}
	if hits, ok := m.results.Get(key); ok {
		return hits
	}

	var pool []scored
	for k := len(q) - 1; k > 0; k-- {
		if prev, ok := m.results.Peek(resultKey{set: sk, query: string(q[:k])}); ok {
			pool = prev
			break
		}
	}

	var hits []scored
	if pool != nil {
		for _, p := range pool {
			if s := idx.entries[p.index].score(q); s > 0 {
				hits = append(hits, scored{index: p.index, score: s})
			}
		}
	} else {
		for i := range idx.entries {
			if s := idx.entries[i].score(q); s > 0 {
				hits = append(hits, scored{index: i, score: s})
			}
		}
	}
	if hits == nil {
		hits = []scored{}
	}

	m.store(key, hits)
	return hits
}

func (m *Matcher) store(key resultKey, hits []scored) {
	m.results.Add(key, hits)
	if n := m.results.Len(); n > m.ceiling {
		drop := (n + 3) / 4
		for range drop {
			m.results.RemoveOldest()
		}
	}
}

func (m *Matcher) rank(hits []scored, idx *index, opts Options) []Match {
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = Match{Item: idx.entries[h.index].original, Score: h.score, Index: h.index}
	}

	preferred := func(s string) bool { return opts.Preferred != nil && opts.Preferred(s) }

	m.mu.Lock()
	slices.SortStableFunc(out, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(opts.Usage[b.Item], opts.Usage[a.Item]); c != 0 {
			return c
		}
		if pa, pb := preferred(a.Item), preferred(b.Item); pa != pb {
			if pa {
				return -1
			}
			return 1
		}
		if c := m.collator.CompareString(a.Item, b.Item); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	m.mu.Unlock()

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func hashItems(items []string) uint64 {
	h := fnv.New64a()
	for _, item := range items {
		h.Write([]byte(item))
		h.Write([]byte{0})
	}
	// Zero is reserved for "not versioned".
	return h.Sum64() | 1
}
