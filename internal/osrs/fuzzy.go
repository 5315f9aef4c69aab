package osrs

import (
	"strings"
	"unicode/utf8"
)

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func fuzzyMatch(items []CatalogItem, name string) (CatalogItem, bool) {
	needle := normalizeName(name)
	if needle == "" {
		return CatalogItem{}, false
	}

	var (
		prefix, contains *CatalogItem
		closest          *CatalogItem
		closestDist      int
	)
	for i := range items {
		it := &items[i]
		candidate := normalizeName(it.Name)
		switch {
		case candidate == needle:
			return *it, true
		case strings.HasPrefix(candidate, needle):
			if prefix == nil || len(it.Name) < len(prefix.Name) {
				prefix = it
			}
		case strings.Contains(candidate, needle):
			if contains == nil || len(it.Name) < len(contains.Name) {
				contains = it
			}
		default:
			d := levenshtein(candidate, needle)
			if closest == nil || d < closestDist {
				closest, closestDist = it, d
			}
		}
	}

	if prefix != nil {
		return *prefix, true
	}
	if contains != nil {
		return *contains, true
	}
	if closest != nil && closestDist <= maxEditDistance(needle) {
		return *closest, true
	}
	return CatalogItem{}, false
}

func maxEditDistance(s string) int {
	return max(2, utf8.RuneCountInString(s)/4)
}

// levenshtein counts single-rune insertions, deletions and substitutions.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
