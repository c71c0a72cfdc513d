package queue

import (
	"sort"

	"github.com/Brunsben/TwitchSpotifySRBot/internal/domain"
)

// reorder recomputes the canonical queue order in place.
//
// Pinned items form a leading block and keep their relative order. When
// voting is enabled the remaining items are ordered by vote count
// descending, ties broken by submission time ascending; otherwise they
// stay in submission order. Manual moves among unpinned items survive
// only until the next recompute.
func reorder(items []*domain.Request, byVotes bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		if a.Pinned || !byVotes {
			return false
		}
		if a.Votes() != b.Votes() {
			return a.Votes() > b.Votes()
		}
		return a.SubmittedAt.Before(b.SubmittedAt)
	})
}
