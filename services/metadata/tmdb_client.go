package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"postergrid/models"
	"postergrid/services/ratelimit"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// w500 is plenty for grid cards; "original" wastes bandwidth.
	tmdbPosterSize = "w500"

	// Discover floor: titles with fewer votes produce junk top-10 lists.
	discoverMinVotes = 100
)

type tmdbClient struct {
	apiKey   string
	language string
	httpc    *http.Client
	limiter  *ratelimit.Limiter
}

func newTMDBClient(apiKey, language string, httpc *http.Client, limiter *ratelimit.Limiter) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if language == "" {
		language = "en-US"
	}
	return &tmdbClient{
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		httpc:    httpc,
		limiter:  limiter,
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET acquires an admission slot, performs the request and maps failures
// into the error taxonomy. No automatic retry anywhere: callers decide.
func (c *tmdbClient) doGET(ctx context.Context, endpoint string, params url.Values, v any) error {
	if !c.isConfigured() {
		return errors.New("tmdb api key not configured")
	}
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)
	req.URL.RawQuery = params.Encode()

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Wrap(err, models.ErrNetwork, "tmdb request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.NewAppError(models.ErrRateLimit, "tmdb rate limit exceeded", nil)
	}
	if resp.StatusCode >= 400 {
		return models.NewAppError(models.ErrAPI, fmt.Sprintf("tmdb request failed: %s", resp.Status),
			map[string]any{"status": resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return models.Wrap(err, models.ErrAPI, "tmdb response decode failed")
	}
	return nil
}

type tmdbSearchResponse struct {
	Results []tmdbMovieEntry `json:"results"`
}

type tmdbMovieEntry struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
}

type tmdbExternalIDsResponse struct {
	IMDBID string `json:"imdb_id"`
}

type tmdbMovieDetailsResponse struct {
	tmdbMovieEntry
	Runtime int    `json:"runtime"`
	IMDBID  string `json:"imdb_id"`
}

func (e tmdbMovieEntry) toMovie() models.Movie {
	return models.Movie{
		ID:          e.ID,
		Title:       e.Title,
		PosterURL:   buildPosterURL(e.PosterPath),
		Overview:    e.Overview,
		ReleaseDate: e.ReleaseDate,
		Rating:      e.VoteAverage,
		VoteCount:   e.VoteCount,
		Popularity:  e.Popularity,
	}
}

func buildPosterURL(posterPath string) string {
	trimmed := strings.TrimSpace(posterPath)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", tmdbImageBaseURL, tmdbPosterSize, strings.TrimPrefix(trimmed, "/"))
}

// searchMovie returns the first match for a free-text title. No
// disambiguation: the grid trusts TMDB's relevance order.
func (c *tmdbClient) searchMovie(ctx context.Context, title string) (models.Movie, error) {
	var payload tmdbSearchResponse
	params := url.Values{"query": []string{title}}
	if err := c.doGET(ctx, tmdbBaseURL+"/search/movie", params, &payload); err != nil {
		return models.Movie{}, err
	}
	if len(payload.Results) == 0 {
		return models.Movie{}, models.NewAppError(models.ErrNotFound, "movie not found",
			map[string]any{"title": title})
	}
	return payload.Results[0].toMovie(), nil
}

// discoverByYear returns up to limit movies of the given year, best rated
// first, with a minimum vote-count floor.
func (c *tmdbClient) discoverByYear(ctx context.Context, year, limit int) ([]models.Movie, error) {
	var payload tmdbSearchResponse
	params := url.Values{
		"primary_release_year": []string{fmt.Sprintf("%d", year)},
		"sort_by":              []string{"vote_average.desc"},
		"vote_count.gte":       []string{fmt.Sprintf("%d", discoverMinVotes)},
		"page":                 []string{"1"},
	}
	if err := c.doGET(ctx, tmdbBaseURL+"/discover/movie", params, &payload); err != nil {
		return nil, err
	}

	entries := payload.Results
	if len(entries) > limit {
		entries = entries[:limit]
	}
	movies := make([]models.Movie, len(entries))
	for i, e := range entries {
		movies[i] = e.toMovie()
	}
	return movies, nil
}

// topRatedPage fetches one 20-item page of the top-rated listing.
func (c *tmdbClient) topRatedPage(ctx context.Context, page int) ([]models.Movie, error) {
	var payload tmdbSearchResponse
	params := url.Values{"page": []string{fmt.Sprintf("%d", page)}}
	if err := c.doGET(ctx, tmdbBaseURL+"/movie/top_rated", params, &payload); err != nil {
		return nil, err
	}
	movies := make([]models.Movie, len(payload.Results))
	for i, e := range payload.Results {
		movies[i] = e.toMovie()
	}
	return movies, nil
}

// externalID resolves the IMDb identifier for a TMDB movie.
func (c *tmdbClient) externalID(ctx context.Context, tmdbID int64) (string, error) {
	var payload tmdbExternalIDsResponse
	endpoint := fmt.Sprintf("%s/movie/%d/external_ids", tmdbBaseURL, tmdbID)
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(payload.IMDBID), nil
}

// movieDetails fetches full movie details. The response carries both
// runtime and the IMDb id, so the enrichment pass needs a single gated
// call per item before the awards lookup.
func (c *tmdbClient) movieDetails(ctx context.Context, tmdbID int64) (models.Movie, string, error) {
	var payload tmdbMovieDetailsResponse
	endpoint := fmt.Sprintf("%s/movie/%d", tmdbBaseURL, tmdbID)
	if err := c.doGET(ctx, endpoint, nil, &payload); err != nil {
		return models.Movie{}, "", err
	}
	movie := payload.toMovie()
	movie.Runtime = payload.Runtime
	return movie, strings.TrimSpace(payload.IMDBID), nil
}
