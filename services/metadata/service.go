package metadata

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"postergrid/models"
	"postergrid/services/cache"
	"postergrid/services/localstore"
	"postergrid/services/ratelimit"
)

const (
	// Tier schema versions. Bump when the cached record shape changes; the
	// tier discards its entries on mismatch.
	posterSchemaVersion = 4
	yearSchemaVersion   = 3
	awardsSchemaVersion = 1

	yearTopCount  = 10
	topRatedPages = 5
	topRatedKey   = "top_rated"
)

// Service resolves titles and curated listings against TMDB, consults the
// awards provider, and fronts everything with the three cache tiers.
type Service struct {
	tmdb *tmdbClient
	omdb *omdbClient

	posters *cache.Tier
	years   *cache.Tier
	awards  *cache.Tier
}

// awardsEntry is what the awards tier stores. Misses are cached too, so a
// title known to have no "Won N" citation costs one provider call per
// schema generation, not one per lookup.
type awardsEntry struct {
	Found bool `json:"found"`
	Count int  `json:"count"`
}

// catalogueEntry is what the years tier stores. Enriched flips once the
// secondary pass has re-persisted the batch, so a cache hit that already
// carries runtime and award data does not trigger another pass.
type catalogueEntry struct {
	Movies   []models.Movie `json:"movies"`
	Enriched bool           `json:"enriched"`
}

// NewService wires the metadata clients against the shared admission
// limiter and the persistent store.
func NewService(tmdbAPIKey, omdbAPIKey, language string, httpc *http.Client, limiter *ratelimit.Limiter, store *localstore.Store) *Service {
	return &Service{
		tmdb:    newTMDBClient(tmdbAPIKey, language, httpc, limiter),
		omdb:    newOMDBClient(omdbAPIKey, httpc),
		posters: cache.NewTier(store, "posters", posterSchemaVersion, cache.CaseInsensitiveKeys()),
		years:   cache.NewTier(store, "years", yearSchemaVersion),
		awards:  cache.NewTier(store, "awards", awardsSchemaVersion),
	}
}

// SearchByTitle resolves one free-text title to a movie record. This is
// the interactive path: cache read failures surface as CACHE_ERROR instead
// of being swallowed, and it is the only operation that performs the
// external-id and awards lookups inline.
func (s *Service) SearchByTitle(ctx context.Context, title string) (models.Movie, error) {
	var cached models.Movie
	hit, err := s.posters.Get(title, &cached)
	if err != nil {
		return models.Movie{}, models.Wrap(err, models.ErrCache, "failed to read poster cache")
	}
	if hit {
		return cached, nil
	}

	movie, err := s.tmdb.searchMovie(ctx, title)
	if err != nil {
		return models.Movie{}, err
	}
	if movie.PosterURL == "" {
		return models.Movie{}, models.NewAppError(models.ErrNotFound, "movie has no poster",
			map[string]any{"title": title})
	}

	// Secondary lookups are best-effort: a movie without award data is
	// still a resolved movie.
	imdbID, err := s.tmdb.externalID(ctx, movie.ID)
	if err != nil {
		log.Printf("[metadata] external id lookup failed title=%q tmdbId=%d: %v", title, movie.ID, err)
	} else if imdbID != "" {
		if summary, err := s.LookupAwards(ctx, imdbID); err != nil {
			log.Printf("[metadata] awards lookup failed title=%q imdbId=%s: %v", title, imdbID, err)
		} else if summary != nil {
			movie.HasAwards = summary.HasAwards
			movie.AwardCount = summary.Count
		}
	}

	if err := s.posters.Set(title, movie); err != nil {
		log.Printf("[metadata] poster cache write failed title=%q: %v", title, err)
	}
	return movie, nil
}

// DiscoverByYear returns the top movies of a year by vote average, plus
// whether the batch has already been through the enrichment pass. Award
// and runtime data is deferred to that pass.
func (s *Service) DiscoverByYear(ctx context.Context, year int) ([]models.Movie, bool, error) {
	key := yearKey(year)
	var cached catalogueEntry
	if hit, err := s.years.Get(key, &cached); err != nil {
		log.Printf("[metadata] year cache read failed year=%d: %v", year, err)
	} else if hit {
		return cached.Movies, cached.Enriched, nil
	}

	movies, err := s.tmdb.discoverByYear(ctx, year, yearTopCount)
	if err != nil {
		return nil, false, err
	}
	if len(movies) > 0 {
		s.CacheYear(year, movies, false)
	}
	return movies, false, nil
}

// TopRated aggregates the fixed top-rated catalogue, page by page behind
// the shared limiter. Provider order is preserved across pages. The bool
// reports whether the batch is already enriched.
func (s *Service) TopRated(ctx context.Context) ([]models.Movie, bool, error) {
	var cached catalogueEntry
	if hit, err := s.years.Get(topRatedKey, &cached); err != nil {
		log.Printf("[metadata] top rated cache read failed: %v", err)
	} else if hit {
		return cached.Movies, cached.Enriched, nil
	}

	var movies []models.Movie
	for page := 1; page <= topRatedPages; page++ {
		pageMovies, err := s.tmdb.topRatedPage(ctx, page)
		if err != nil {
			return nil, false, err
		}
		movies = append(movies, pageMovies...)
	}
	if len(movies) > 0 {
		s.CacheTopRated(movies, false)
	}
	return movies, false, nil
}

// LookupAwards returns the award summary for an IMDb id, caching hits and
// misses alike. A nil summary means the provider has no usable citation.
func (s *Service) LookupAwards(ctx context.Context, imdbID string) (*models.AwardSummary, error) {
	// Without a provider key there is nothing to look up; do not pollute
	// the cache with misses that would outlive configuring one.
	if !s.omdb.isConfigured() || imdbID == "" {
		return nil, nil
	}

	var entry awardsEntry
	if hit, err := s.awards.Get(imdbID, &entry); err != nil {
		log.Printf("[metadata] awards cache read failed imdbId=%s: %v", imdbID, err)
	} else if hit {
		if !entry.Found {
			return nil, nil
		}
		return &models.AwardSummary{Count: entry.Count, HasAwards: true}, nil
	}

	summary, err := s.omdb.awards(ctx, imdbID)
	if err != nil {
		return nil, err
	}

	entry = awardsEntry{}
	if summary != nil {
		entry = awardsEntry{Found: true, Count: summary.Count}
	}
	if err := s.awards.Set(imdbID, entry); err != nil {
		log.Printf("[metadata] awards cache write failed imdbId=%s: %v", imdbID, err)
	}
	return summary, nil
}

// MovieDetails fetches runtime-bearing details plus the IMDb id in one
// gated call. Used by the enrichment pass.
func (s *Service) MovieDetails(ctx context.Context, tmdbID int64) (models.Movie, string, error) {
	return s.tmdb.movieDetails(ctx, tmdbID)
}

// CacheYear re-persists a year batch, recording whether it has been
// through the enrichment pass.
func (s *Service) CacheYear(year int, movies []models.Movie, enriched bool) {
	if err := s.years.Set(yearKey(year), catalogueEntry{Movies: movies, Enriched: enriched}); err != nil {
		log.Printf("[metadata] year cache write failed year=%d: %v", year, err)
	}
}

// CacheTopRated re-persists the catalogue, recording whether it has been
// through the enrichment pass.
func (s *Service) CacheTopRated(movies []models.Movie, enriched bool) {
	if err := s.years.Set(topRatedKey, catalogueEntry{Movies: movies, Enriched: enriched}); err != nil {
		log.Printf("[metadata] top rated cache write failed: %v", err)
	}
}

func yearKey(year int) string {
	return fmt.Sprintf("year_%d", year)
}
