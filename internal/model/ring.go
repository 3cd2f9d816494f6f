package model

import (
	"cmp"
	"slices"
)

// RecentCapacity is the number of template uses remembered per payee.
const RecentCapacity = 50

// RecentEntry is one use of a template on a given date (YYYY-MM-DD).
type RecentEntry struct {
	Key  TemplateKey
	Date string
}

// RecentTemplateBuffer is a fixed-size ring of the latest template uses of
// one payee. The zero value is an empty buffer. It is a value type: copies
// never share storage.
type RecentTemplateBuffer struct {
	entries    [RecentCapacity]RecentEntry
	writeIndex int
	total      int
}

func (b *RecentTemplateBuffer) Push(e RecentEntry) {
	b.entries[b.writeIndex] = e
	b.writeIndex = (b.writeIndex + 1) % RecentCapacity
	b.total++
}

// Len is the number of entries held, never more than RecentCapacity.
func (b RecentTemplateBuffer) Len() int {
	return min(b.total, RecentCapacity)
}

// WriteIndex is the slot the next Push writes to; it equals Total modulo
// RecentCapacity.
func (b RecentTemplateBuffer) WriteIndex() int {
	return b.writeIndex
}

// Total counts every Push, including overwritten ones.
func (b RecentTemplateBuffer) Total() int {
	return b.total
}

// Entries returns the held entries oldest first.
func (b RecentTemplateBuffer) Entries() []RecentEntry {
	n := b.Len()
	out := make([]RecentEntry, 0, n)
	start := (b.writeIndex - n + RecentCapacity) % RecentCapacity
	for i := range n {
		out = append(out, b.entries[(start+i)%RecentCapacity])
	}
	return out
}

// Keys returns the held template keys oldest first.
func (b RecentTemplateBuffer) Keys() []TemplateKey {
	entries := b.Entries()
	keys := make([]TemplateKey, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Frequency counts how often each key occurs among the held entries.
func (b RecentTemplateBuffer) Frequency() map[TemplateKey]int {
	freq := make(map[TemplateKey]int)
	for _, e := range b.Entries() {
		freq[e.Key]++
	}
	return freq
}

// MergeBuffers combines buffers into one holding the most recent
// RecentCapacity entries by date. Entries with the same date keep argument
// order, then push order.
func MergeBuffers(bufs ...RecentTemplateBuffer) RecentTemplateBuffer {
	var (
		all   []RecentEntry
		total int
	)
	for _, b := range bufs {
		all = append(all, b.Entries()...)
		total += b.total
	}
	slices.SortStableFunc(all, func(x, y RecentEntry) int {
		return cmp.Compare(x.Date, y.Date)
	})
	if len(all) > RecentCapacity {
		all = all[len(all)-RecentCapacity:]
	}
	return fromChronological(all, total)
}

// fromChronological lays entries out as if they were the last len(entries)
// of total pushes.
func fromChronological(entries []RecentEntry, total int) RecentTemplateBuffer {
	var b RecentTemplateBuffer
	first := total - len(entries)
	for i, e := range entries {
		b.entries[(first+i)%RecentCapacity] = e
	}
	b.total = total
	b.writeIndex = total % RecentCapacity
	return b
}
