package model

import (
	"iter"
	"maps"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// nameSet tracks names that were declared by a directive and names that
// were used, with a use count. The two are independent.
type nameSet struct {
	used     map[string]int
	declared map[string]struct{}
}

func newNameSet() nameSet {
	return nameSet{
		used:     make(map[string]int),
		declared: make(map[string]struct{}),
	}
}

func (n nameSet) use(name string) {
	if name != "" {
		n.used[name]++
	}
}

func (n nameSet) declare(name string) {
	if name != "" {
		n.declared[name] = struct{}{}
	}
}

func (n nameSet) absorb(other nameSet) {
	for name, count := range other.used {
		n.used[name] += count
	}
	for name := range other.declared {
		n.declared[name] = struct{}{}
	}
}

func (n nameSet) isDeclared(name string) bool {
	_, ok := n.declared[name]
	return ok
}

func (n nameSet) usedNames() []string {
	return sortedNames(maps.Keys(n.used))
}

func (n nameSet) declaredNames() []string {
	return sortedNames(maps.Keys(n.declared))
}

func (n nameSet) all() []string {
	union := maps.Clone(n.declared)
	for name := range n.used {
		union[name] = struct{}{}
	}
	return sortedNames(maps.Keys(union))
}

// sortedNames collects and orders names with the root collation, so
// non-Latin scripts sort by their alphabet rather than by byte value.
func sortedNames(seq iter.Seq[string]) []string {
	var names []string
	for name := range seq {
		names = append(names, name)
	}
	if len(names) == 0 {
		return []string{}
	}
	collate.New(language.Und).SortStrings(names)
	return names
}
