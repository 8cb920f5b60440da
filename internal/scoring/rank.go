package scoring

import (
	"sort"

	"github.com/spigell/lead-scorer/internal/leads"
)

// Rank returns a copy of results sorted by score, highest first. Equal scores
// keep their input order.
func Rank(results []leads.ScoredLead) []leads.ScoredLead {
	ranked := make([]leads.ScoredLead, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
