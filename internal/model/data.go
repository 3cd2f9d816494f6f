package model

import (
	"cmp"
	"encoding/binary"
	"hash/fnv"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// stats is the aggregate of one or more sources. Once attached to a
// ParsedData it is never written again.
type stats struct {
	accounts    nameSet
	commodities nameSet
	payees      nameSet
	tags        nameSet

	commodityFormats map[string]CommodityFormat
	tagValues        map[string]map[string]int
	dates            map[string]int
	lastDate         string
	dateSample       string

	templates map[string]templateSet
	recent    map[string]RecentTemplateBuffer
}

func newStats() *stats {
	return &stats{
		accounts:         newNameSet(),
		commodities:      newNameSet(),
		payees:           newNameSet(),
		tags:             newNameSet(),
		commodityFormats: make(map[string]CommodityFormat),
		tagValues:        make(map[string]map[string]int),
		dates:            make(map[string]int),
		templates:        make(map[string]templateSet),
		recent:           make(map[string]RecentTemplateBuffer),
	}
}

func (s *stats) useTag(name, value string) {
	if name == "" {
		return
	}
	s.tags.use(name)
	if value == "" {
		return
	}
	values := s.tagValues[name]
	if values == nil {
		values = make(map[string]int)
		s.tagValues[name] = values
	}
	values[value]++
}

func (s *stats) useDate(date, raw string) {
	s.dates[date]++
	if date >= s.lastDate {
		s.lastDate = date
		s.dateSample = raw
	}
}

// absorb adds other into s. Templates may exceed the per-payee cap until
// recap runs; recent buffers are merged separately.
func (s *stats) absorb(other *stats) {
	s.accounts.absorb(other.accounts)
	s.commodities.absorb(other.commodities)
	s.payees.absorb(other.payees)
	s.tags.absorb(other.tags)

	for sym, format := range other.commodityFormats {
		s.commodityFormats[sym] = format
	}
	for name, values := range other.tagValues {
		for value, count := range values {
			if s.tagValues[name] == nil {
				s.tagValues[name] = make(map[string]int)
			}
			s.tagValues[name][value] += count
		}
	}
	for date, count := range other.dates {
		s.dates[date] += count
	}
	if other.lastDate != "" && other.lastDate >= s.lastDate {
		s.lastDate = other.lastDate
		s.dateSample = other.dateSample
	}

	for payee, set := range other.templates {
		dst := s.templates[payee]
		if dst == nil {
			dst = make(templateSet)
			s.templates[payee] = dst
		}
		for key, t := range set {
			cur, ok := dst[key]
			if !ok {
				dst[key] = t.clone()
				continue
			}
			cur.UsageCount += t.UsageCount
			if t.LastUsedDate >= cur.LastUsedDate {
				cur.LastUsedDate = t.LastUsedDate
				cur.Postings = slices.Clone(t.Postings)
			}
		}
	}
}

type unit struct {
	source      string
	fingerprint uint64
	stats       *stats
}

// ParsedData is an immutable snapshot of names, usage counts and templates
// built from one or more sources. A nil *ParsedData is an empty snapshot.
//
// A snapshot remembers which (source, content fingerprint) units it was
// built from. Merging unions the units and recomputes the aggregate, so
// Merge is associative and commutative, and merging a snapshot with one
// built from identical content does not count anything twice.
type ParsedData struct {
	units   []*unit
	agg     *stats
	version uint64
}

var emptyStats = newStats()

func newParsedData(units []*unit) *ParsedData {
	d := &ParsedData{units: units}

	switch len(units) {
	case 0:
		d.agg = emptyStats
	case 1:
		d.agg = units[0].stats
	default:
		agg := newStats()
		recent := make(map[string][]RecentTemplateBuffer)
		for _, u := range units {
			agg.absorb(u.stats)
			for payee, buf := range u.stats.recent {
				recent[payee] = append(recent[payee], buf)
			}
		}
		for _, set := range agg.templates {
			set.recap()
		}
		for payee, bufs := range recent {
			agg.recent[payee] = MergeBuffers(bufs...)
		}
		d.agg = agg
	}

	h := fnv.New64a()
	var buf [8]byte
	for _, u := range units {
		h.Write([]byte(u.source))
		binary.LittleEndian.PutUint64(buf[:], u.fingerprint)
		h.Write(buf[:])
	}
	d.version = h.Sum64()

	return d
}

// Merge returns a new snapshot holding everything in a and b.
func Merge(a, b *ParsedData) *ParsedData {
	return MergeAll(a, b)
}

func MergeAll(parts ...*ParsedData) *ParsedData {
	type unitKey struct {
		source      string
		fingerprint uint64
	}
	seen := make(map[unitKey]struct{})
	var units []*unit
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, u := range p.units {
			k := unitKey{u.source, u.fingerprint}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			units = append(units, u)
		}
	}
	slices.SortFunc(units, func(a, b *unit) int {
		if c := strings.Compare(a.source, b.source); c != 0 {
			return c
		}
		return cmp.Compare(a.fingerprint, b.fingerprint)
	})
	return newParsedData(units)
}

func (d *ParsedData) s() *stats {
	if d == nil || d.agg == nil {
		return emptyStats
	}
	return d.agg
}

// Version changes whenever the set of underlying sources or their content
// changes.
func (d *ParsedData) Version() uint64 {
	if d == nil {
		return 0
	}
	return d.version
}

// Sources lists the source names the snapshot was built from.
func (d *ParsedData) Sources() []string {
	if d == nil {
		return []string{}
	}
	out := make([]string, 0, len(d.units))
	for _, u := range d.units {
		out = append(out, u.source)
	}
	return slices.Compact(out)
}

func (d *ParsedData) DefinedAccounts() []string { return d.s().accounts.declaredNames() }
func (d *ParsedData) UsedAccounts() []string    { return d.s().accounts.usedNames() }

// Accounts lists defined and used accounts together.
func (d *ParsedData) Accounts() []string { return d.s().accounts.all() }

func (d *ParsedData) AccountCount(name string) int { return d.s().accounts.used[name] }

func (d *ParsedData) IsDefinedAccount(name string) bool { return d.s().accounts.isDeclared(name) }

func (d *ParsedData) Commodities() []string { return d.s().commodities.all() }

func (d *ParsedData) CommodityCount(symbol string) int { return d.s().commodities.used[symbol] }

func (d *ParsedData) IsDeclaredCommodity(symbol string) bool {
	return d.s().commodities.isDeclared(symbol)
}

// CommodityFormat returns the display format declared for symbol.
func (d *ParsedData) CommodityFormat(symbol string) (CommodityFormat, bool) {
	format, ok := d.s().commodityFormats[symbol]
	return format, ok
}

func (d *ParsedData) Payees() []string { return d.s().payees.all() }

func (d *ParsedData) PayeeCount(payee string) int {
	return d.s().payees.used[normalizePayee(payee)]
}

func (d *ParsedData) IsDeclaredPayee(payee string) bool {
	return d.s().payees.isDeclared(normalizePayee(payee))
}

func (d *ParsedData) TagKeys() []string { return d.s().tags.all() }

func (d *ParsedData) TagCount(name string) int { return d.s().tags.used[name] }

func (d *ParsedData) IsDeclaredTag(name string) bool { return d.s().tags.isDeclared(name) }

func (d *ParsedData) TagValues(name string) []string {
	return sortedNames(maps.Keys(d.s().tagValues[name]))
}

func (d *ParsedData) TagValueCount(name, value string) int {
	return d.s().tagValues[name][value]
}

// LastDate is the latest transaction date as YYYY-MM-DD, or "".
func (d *ParsedData) LastDate() string { return d.s().lastDate }

// DateSample is the latest transaction date as it was written.
func (d *ParsedData) DateSample() string { return d.s().dateSample }

// Dates lists distinct transaction dates, most recent first.
func (d *ParsedData) Dates() []string {
	dates := slices.Collect(maps.Keys(d.s().dates))
	slices.Sort(dates)
	slices.Reverse(dates)
	if dates == nil {
		return []string{}
	}
	return dates
}

// TransactionTemplates returns the payee's templates, most used first.
func (d *ParsedData) TransactionTemplates(payee string) []TransactionTemplate {
	set := d.s().templates[normalizePayee(payee)]
	out := make([]TransactionTemplate, 0, len(set))
	for _, t := range set.ranked() {
		out = append(out, *t.clone())
	}
	return out
}

// RecentTemplates returns a copy of the payee's recent-use buffer.
func (d *ParsedData) RecentTemplates(payee string) RecentTemplateBuffer {
	return d.s().recent[normalizePayee(payee)]
}

// RecentFrequency counts template keys among the payee's recent uses.
func (d *ParsedData) RecentFrequency(payee string) map[TemplateKey]int {
	return d.RecentTemplates(payee).Frequency()
}

// normalizePayee returns the lookup form of a payee: trimmed and in
// Unicode canonical composition.
func normalizePayee(payee string) string {
	return norm.NFC.String(strings.TrimSpace(payee))
}
