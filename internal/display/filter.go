package display

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Filter narrows domain to the items matching query as a fuzzy subsequence.
// Matching ignores case. Better scores come first, equal scores keep domain order.
// An empty query returns domain unchanged.
func Filter(domain []string, query string) []string {
	if query == "" {
		return domain
	}

	lowered := make([]string, len(domain))
	for i, item := range domain {
		lowered[i] = strings.ToLower(item)
	}

	matches := fuzzy.Find(strings.ToLower(query), lowered)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, domain[m.Index])
	}
	return out
}
