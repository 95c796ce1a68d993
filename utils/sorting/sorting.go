// Package sorting orders movie records for display. Sorting is cosmetic:
// it never fails, and an unknown criterion returns the input order.
package sorting

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"postergrid/models"
)

// Criterion names accepted by Sort.
const (
	ByRating  = "rating"
	ByYear    = "year"
	ByTitle   = "title"
	ByRuntime = "runtime"
	ByAwards  = "awards"
	ByAdded   = "added"
)

// newCollator builds a case-insensitive, locale-aware title comparator.
func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}

// Sort returns a new slice ordered by the given criterion; the input is
// never mutated. Absent values default to zero, which puts un-enriched
// records last under the descending criteria.
func Sort(movies []models.Movie, criterion string) []models.Movie {
	out := make([]models.Movie, len(movies))
	copy(out, movies)

	switch criterion {
	case ByRating:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Rating > out[j].Rating
		})
	case ByYear:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Year() > out[j].Year()
		})
	case ByTitle:
		c := newCollator()
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Title, out[j].Title) < 0
		})
	case ByRuntime:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Runtime > out[j].Runtime
		})
	case ByAwards:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AwardCount != out[j].AwardCount {
				return out[i].AwardCount > out[j].AwardCount
			}
			return out[i].Rating > out[j].Rating
		})
	}
	return out
}

// SortItems orders collection entries. "added" (ascending insertion time)
// is the only criterion specific to collections; everything else falls
// through to the movie criteria.
func SortItems(items []models.CollectionItem, criterion string) []models.CollectionItem {
	out := make([]models.CollectionItem, len(items))
	copy(out, items)

	if criterion == ByAdded {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AddedAt.Before(out[j].AddedAt)
		})
		return out
	}

	movies := make([]models.Movie, len(items))
	for i, item := range items {
		movies[i] = item.Movie
	}
	sorted := Sort(movies, criterion)

	// Reorder items to match; ids are unique within a collection.
	byID := make(map[int64]models.CollectionItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	for i, m := range sorted {
		out[i] = byID[m.ID]
	}
	return out
}
