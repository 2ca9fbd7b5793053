// Package stats turns loaded snapshot records into the series and summaries
// shown on the dashboard. Every function is pure: callers pass the records and,
// where months are involved, the reference time.
package stats

import (
	"slices"

	"repo-dashboard/internal/model"
)

// RepositoryScoped is implemented by records that belong to one repository.
type RepositoryScoped interface {
	RepositoryKey() string
}

// GroupByRepository partitions items by repository full name. Every repository
// gets a key, with an empty slice when nothing matches. The optional filter is
// applied before the optional comparator; sorting is stable, and without a
// comparator input order is preserved.
func GroupByRepository[T RepositoryScoped](
	repositories []model.RepositorySnapshot,
	items []T,
	filter func(T) bool,
	cmp func(a, b T) int,
) map[string][]T {
	grouped := make(map[string][]T, len(repositories))
	for _, repo := range repositories {
		grouped[repo.FullName] = []T{}
	}

	for _, item := range items {
		key := item.RepositoryKey()
		list, ok := grouped[key]
		if !ok {
			continue
		}
		if filter != nil && !filter(item) {
			continue
		}
		grouped[key] = append(list, item)
	}

	if cmp != nil {
		for _, list := range grouped {
			slices.SortStableFunc(list, cmp)
		}
	}
	return grouped
}
