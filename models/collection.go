package models

import "time"

// CollectionName identifies one of the user-curated sets.
type CollectionName string

const (
	CollectionFavorites CollectionName = "favorites"
	CollectionWatchlist CollectionName = "watchlist"
)

// ValidCollection reports whether name refers to a known collection.
func ValidCollection(name CollectionName) bool {
	return name == CollectionFavorites || name == CollectionWatchlist
}

// CollectionItem is a movie that entered a collection, stamped with the
// moment of first insertion. Re-adding an existing ID refreshes the movie
// fields but keeps the original AddedAt.
type CollectionItem struct {
	Movie
	AddedAt time.Time `json:"addedAt"`
}
