package metadata

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"postergrid/models"
	"postergrid/services/localstore"
	"postergrid/services/ratelimit"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestService(t *testing.T, omdbKey string, rt roundTripFunc) *Service {
	t.Helper()
	store, err := localstore.Open(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	httpc := &http.Client{Transport: rt}
	svc := NewService("test-tmdb-key", omdbKey, "en-US", httpc, ratelimit.New(100, time.Second), store)
	svc.omdb.minInterval = 0
	return svc
}

func TestSearchByTitleResolvesAndCaches(t *testing.T) {
	var (
		mu            sync.Mutex
		searchCalls   int
		externalCalls int
	)

	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		path := req.URL.Path

		if path == "/3/search/movie" {
			searchCalls++
			if got := req.URL.Query().Get("query"); got != "Inception" {
				t.Errorf("unexpected query %q", got)
			}
			return jsonResponse(http.StatusOK, `{"results":[
				{"id":27205,"title":"Inception","poster_path":"/poster.jpg","release_date":"2010-07-16","vote_average":8.4,"vote_count":36000}
			]}`), nil
		}
		if path == "/3/movie/27205/external_ids" {
			externalCalls++
			return jsonResponse(http.StatusOK, `{"imdb_id":"tt1375666"}`), nil
		}
		t.Errorf("unhandled request: %s", req.URL.String())
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	movie, err := svc.SearchByTitle(context.Background(), "Inception")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if movie.ID != 27205 || movie.Title != "Inception" {
		t.Fatalf("unexpected movie: %+v", movie)
	}
	if !strings.Contains(movie.PosterURL, "/w500/poster.jpg") {
		t.Fatalf("unexpected poster url: %s", movie.PosterURL)
	}
	if movie.Year() != 2010 {
		t.Fatalf("expected year 2010, got %d", movie.Year())
	}

	// Second lookup, different casing, must come from cache.
	again, err := svc.SearchByTitle(context.Background(), "INCEPTION")
	if err != nil {
		t.Fatalf("cached search failed: %v", err)
	}
	if again.ID != movie.ID {
		t.Fatalf("cache returned different movie: %+v", again)
	}

	mu.Lock()
	defer mu.Unlock()
	if searchCalls != 1 {
		t.Fatalf("expected 1 search call, got %d", searchCalls)
	}
	if externalCalls != 1 {
		t.Fatalf("expected 1 external id call, got %d", externalCalls)
	}
}

func TestSearchByTitleNoResults(t *testing.T) {
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"results":[]}`), nil
	})

	_, err := svc.SearchByTitle(context.Background(), "No Such Movie XYZ")
	if models.TypeOf(err) != models.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSearchByTitleNoPoster(t *testing.T) {
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"results":[{"id":1,"title":"Obscure","poster_path":""}]}`), nil
	})

	_, err := svc.SearchByTitle(context.Background(), "Obscure")
	if models.TypeOf(err) != models.ErrNotFound {
		t.Fatalf("a movie without a poster must be NOT_FOUND, got %v", err)
	}
}

func TestSearchByTitleRateLimited(t *testing.T) {
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{}`), nil
	})

	_, err := svc.SearchByTitle(context.Background(), "Inception")
	if models.TypeOf(err) != models.ErrRateLimit {
		t.Fatalf("expected RATE_LIMIT, got %v", err)
	}
}

func TestDiscoverByYearUsesCache(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		if req.URL.Path != "/3/discover/movie" {
			t.Errorf("unhandled request: %s", req.URL.String())
		}
		if got := req.URL.Query().Get("primary_release_year"); got != "1994" {
			t.Errorf("unexpected year param %q", got)
		}
		return jsonResponse(http.StatusOK, `{"results":[
			{"id":278,"title":"The Shawshank Redemption","poster_path":"/shawshank.jpg","vote_average":8.7},
			{"id":680,"title":"Pulp Fiction","poster_path":"/pulp.jpg","vote_average":8.5}
		]}`), nil
	})

	first, enriched, err := svc.DiscoverByYear(context.Background(), 1994)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(first))
	}
	if enriched {
		t.Fatal("a fresh batch cannot be enriched yet")
	}

	second, _, err := svc.DiscoverByYear(context.Background(), 1994)
	if err != nil {
		t.Fatalf("cached discover failed: %v", err)
	}
	if len(second) != 2 || second[0].ID != first[0].ID {
		t.Fatalf("cached batch differs: %+v", second)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", calls)
	}
}

func TestTopRatedAggregatesPagesInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/3/movie/top_rated" {
			t.Errorf("unhandled request: %s", req.URL.String())
		}
		page := req.URL.Query().Get("page")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		return jsonResponse(http.StatusOK,
			`{"results":[{"id":`+page+`,"title":"Page `+page+`","poster_path":"/p.jpg"}]}`), nil
	})

	movies, _, err := svc.TopRated(context.Background())
	if err != nil {
		t.Fatalf("top rated failed: %v", err)
	}
	if len(movies) != topRatedPages {
		t.Fatalf("expected %d movies, got %d", topRatedPages, len(movies))
	}
	for i, m := range movies {
		if m.ID != int64(i+1) {
			t.Fatalf("page order broken at %d: %+v", i, m)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pages) != topRatedPages {
		t.Fatalf("expected %d page fetches, got %v", topRatedPages, pages)
	}
}

func TestCatalogueEnrichedFlagRoundTrips(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return jsonResponse(http.StatusOK, `{"results":[
			{"id":278,"title":"The Shawshank Redemption","poster_path":"/s.jpg"}
		]}`), nil
	})

	movies, _, err := svc.DiscoverByYear(context.Background(), 1994)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	// Simulate the enrichment pass re-persisting the upgraded batch.
	movies[0].Runtime = 142
	svc.CacheYear(1994, movies, true)

	cached, enriched, err := svc.DiscoverByYear(context.Background(), 1994)
	if err != nil {
		t.Fatalf("cached discover failed: %v", err)
	}
	if !enriched {
		t.Fatal("re-persisted batch must report enriched")
	}
	if cached[0].Runtime != 142 {
		t.Fatalf("enriched data must be served from cache, got %+v", cached[0])
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", calls)
	}
}

func TestAwardsThrottleHonorsCancelledContext(t *testing.T) {
	svc := newTestService(t, "omdb-key", func(req *http.Request) (*http.Response, error) {
		t.Error("no provider call expected after cancellation")
		return jsonResponse(http.StatusOK, `{}`), nil
	})
	svc.omdb.minInterval = time.Hour
	svc.omdb.lastRequest = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.omdb.awards(ctx, "tt0000001")
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLookupAwardsCachesMisses(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	svc := newTestService(t, "omdb-key", func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return jsonResponse(http.StatusOK,
			`{"Response":"True","Title":"Heat","Awards":"15 wins & 47 nominations","imdbID":"tt0113277"}`), nil
	})

	first, err := svc.LookupAwards(context.Background(), "tt0113277")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if first != nil {
		t.Fatalf("nominations-only citation must yield nil, got %+v", first)
	}

	// The miss must be served from cache, not refetched.
	second, err := svc.LookupAwards(context.Background(), "tt0113277")
	if err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if second != nil {
		t.Fatalf("cached miss must stay nil, got %+v", second)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", calls)
	}
}

func TestLookupAwardsParsesWins(t *testing.T) {
	svc := newTestService(t, "omdb-key", func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK,
			`{"Response":"True","Title":"Parasite","Awards":"Won 4 Oscars. 310 wins & 271 nominations total","imdbID":"tt6751668"}`), nil
	})

	summary, err := svc.LookupAwards(context.Background(), "tt6751668")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if summary == nil || summary.Count != 4 || !summary.HasAwards {
		t.Fatalf("expected 4 wins, got %+v", summary)
	}
}

func TestParseAwards(t *testing.T) {
	cases := []struct {
		citation string
		count    int
	}{
		{"Won 3 Oscars. Another 12 wins & 40 nominations.", 3},
		{"Won 11 Oscars. Another 120 wins", 11},
		{"5 wins & 2 nominations", 0},
		{"N/A", 0},
		{"", 0},
	}
	for _, tc := range cases {
		got := parseAwards(tc.citation)
		if tc.count == 0 {
			if got != nil {
				t.Errorf("parseAwards(%q) = %+v, want nil", tc.citation, got)
			}
			continue
		}
		if got == nil || got.Count != tc.count || !got.HasAwards {
			t.Errorf("parseAwards(%q) = %+v, want count %d", tc.citation, got, tc.count)
		}
	}
}

func TestAwardsUnconfiguredIsSilentNil(t *testing.T) {
	svc := newTestService(t, "", func(req *http.Request) (*http.Response, error) {
		t.Error("no provider call expected without an OMDb key")
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	summary, err := svc.LookupAwards(context.Background(), "tt0000001")
	if err != nil || summary != nil {
		t.Fatalf("unconfigured awards must be nil/nil, got %+v / %v", summary, err)
	}
}
