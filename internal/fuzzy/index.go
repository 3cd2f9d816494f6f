package fuzzy

import (
	"math"
	"slices"
)

type index struct {
	entries []entry
}

// entry is one candidate, folded once.
type entry struct {
	original  string
	folded    []rune
	positions map[rune][]int
}

func newIndex(items []string, fold func(string) string) *index {
	idx := &index{entries: make([]entry, len(items))}
	for i, item := range items {
		folded := []rune(fold(item))
		positions := make(map[rune][]int)
		for p, r := range folded {
			positions[r] = append(positions[r], p)
		}
		idx.entries[i] = entry{original: item, folded: folded, positions: positions}
	}
	return idx
}

// score returns 0 when q does not match.
func (e *entry) score(q []rune) int {
	switch {
	case len(q) > len(e.folded):
		return 0
	case slices.Equal(q, e.folded):
		return ScoreExact
	case slices.Equal(q, e.folded[:len(q)]):
		return ScorePrefix + scoreSubsequence*len(q)/len(e.folded)
	}

	penalty, ok := e.bestAlignment(q)
	if !ok {
		return 0
	}
	return max(1, scoreSubsequence-penalty)
}

// bestAlignment finds the cheapest placement of q as a subsequence:
// opening a gap costs gapOpenPenalty, each skipped rune inside the match
// gapExtendPenalty, and each rune before the first match startPenalty.
func (e *entry) bestAlignment(q []rune) (int, bool) {
	prevPos := e.positions[q[0]]
	if len(prevPos) == 0 {
		return 0, false
	}
	prevCost := make([]int, len(prevPos))
	for i, p := range prevPos {
		prevCost[i] = startPenalty * p
	}

	for _, r := range q[1:] {
		curPos := e.positions[r]
		if len(curPos) == 0 {
			return 0, false
		}
		curCost := make([]int, len(curPos))
		reachable := false
		for i, p := range curPos {
			best := math.MaxInt
			for j, pp := range prevPos {
				if pp >= p || prevCost[j] == math.MaxInt {
					continue
				}
				cost := prevCost[j]
				if gap := p - pp - 1; gap > 0 {
					cost += gapOpenPenalty + gapExtendPenalty*gap
				}
				best = min(best, cost)
			}
			curCost[i] = best
			if best != math.MaxInt {
				reachable = true
			}
		}
		if !reachable {
			return 0, false
		}
		prevPos, prevCost = curPos, curCost
	}

	return slices.Min(prevCost), true
}
