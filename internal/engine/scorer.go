package engine

import (
	"sort"

	"github.com/lazypower/newsletter/internal/domain"
)

// Score sums importance times learned weight over the article's keywords.
// Keywords without a learned weight count at defaultWeight. The sum is not
// normalized by keyword count.
func Score(importances, weights map[string]float64, defaultWeight float64) float64 {
	var total float64
	for _, k := range sortedKeys(importances) {
		w, ok := weights[domain.NormalizeKeyword(k)]
		if !ok {
			w = defaultWeight
		}
		total += importances[k] * w
	}
	return total
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
