package models

import "strconv"

// Movie is the canonical record flowing through the system. Every provider
// response is normalized into this shape at the metadata service boundary;
// callers never branch on which provider produced a record.
type Movie struct {
	// ID is the TMDB identifier. Zero means the title could not be resolved
	// and the record is a display-only placeholder.
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterURL   string  `json:"posterUrl,omitempty"`
	Overview    string  `json:"overview,omitempty"`
	ReleaseDate string  `json:"releaseDate,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	VoteCount   int     `json:"voteCount,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`

	// Runtime (minutes) and award fields are populated by the enrichment
	// pass only. Zero/false means "not enriched yet", never "known zero".
	Runtime    int  `json:"runtime,omitempty"`
	HasAwards  bool `json:"hasAwards,omitempty"`
	AwardCount int  `json:"awardCount,omitempty"`
}

// Resolved reports whether the record carries a real provider identity.
func (m Movie) Resolved() bool {
	return m.ID != 0
}

// Year derives the release year from the first four characters of the
// release date. Returns 0 when absent or unparseable.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	y, err := strconv.Atoi(m.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return y
}

// AwardSummary is the parsed outcome of an awards-provider lookup.
type AwardSummary struct {
	Count     int  `json:"count"`
	HasAwards bool `json:"hasAwards"`
}
