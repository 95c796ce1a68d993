package enrich

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"postergrid/models"
)

type stubDetails struct {
	mu          sync.Mutex
	runtimes    map[int64]int
	imdbIDs     map[int64]string
	awardsByID  map[string]*models.AwardSummary
	awardsFails map[string]error
	detailFails map[int64]error
	detailCalls int

	// onDetails runs inside MovieDetails, for mid-run interference.
	onDetails func(tmdbID int64)
}

func (s *stubDetails) MovieDetails(ctx context.Context, tmdbID int64) (models.Movie, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailCalls++
	if s.onDetails != nil {
		s.onDetails(tmdbID)
	}
	if err, ok := s.detailFails[tmdbID]; ok {
		return models.Movie{}, "", err
	}
	return models.Movie{ID: tmdbID, Runtime: s.runtimes[tmdbID]}, s.imdbIDs[tmdbID], nil
}

func (s *stubDetails) LookupAwards(ctx context.Context, imdbID string) (*models.AwardSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.awardsFails[imdbID]; ok {
		return nil, err
	}
	return s.awardsByID[imdbID], nil
}

func tenMovies() []models.Movie {
	movies := make([]models.Movie, 10)
	for i := range movies {
		movies[i] = models.Movie{ID: int64(i + 1), Title: fmt.Sprintf("Movie %d", i+1)}
	}
	return movies
}

func TestRunSurvivesSingleItemFailure(t *testing.T) {
	stub := &stubDetails{
		runtimes:    map[int64]int{},
		imdbIDs:     map[int64]string{},
		awardsByID:  map[string]*models.AwardSummary{},
		awardsFails: map[string]error{},
	}
	for i := int64(1); i <= 10; i++ {
		stub.runtimes[i] = int(100 + i)
		id := fmt.Sprintf("tt%07d", i)
		stub.imdbIDs[i] = id
		stub.awardsByID[id] = &models.AwardSummary{Count: int(i), HasAwards: true}
	}
	// The 7th item's awards lookup blows up.
	stub.awardsFails["tt0000007"] = models.NewAppError(models.ErrNetwork, "connection reset", nil)

	movies := tenMovies()
	var persisted []models.Movie
	p := NewPipeline(stub)
	p.Run(context.Background(), movies, nil, func(batch []models.Movie) {
		persisted = batch
	})

	if len(persisted) != 10 {
		t.Fatalf("the whole batch must persist, got %d records", len(persisted))
	}
	for i, m := range persisted {
		if m.Runtime != 100+i+1 {
			t.Fatalf("record %d missing runtime: %+v", i, m)
		}
		if i == 6 {
			// Awards failed for this one: defaults stay.
			if m.HasAwards || m.AwardCount != 0 {
				t.Fatalf("failed awards lookup must leave defaults, got %+v", m)
			}
			continue
		}
		if !m.HasAwards || m.AwardCount != i+1 {
			t.Fatalf("record %d missing awards: %+v", i, m)
		}
	}
}

func TestRunSpendsNoCallsOnEnrichedRecords(t *testing.T) {
	stub := &stubDetails{
		runtimes: map[int64]int{},
		imdbIDs:  map[int64]string{},
	}
	movies := []models.Movie{
		{ID: 1, Title: "A", Runtime: 120, HasAwards: true, AwardCount: 2},
		{ID: 2, Title: "B", Runtime: 95, HasAwards: true, AwardCount: 1},
		{ID: 3, Title: "C", Runtime: 140, HasAwards: true, AwardCount: 4},
	}

	var patched, persisted int
	NewPipeline(stub).Run(context.Background(), movies, func(index int, movie models.Movie) {
		patched++
	}, func(batch []models.Movie) {
		persisted++
	})

	if stub.detailCalls != 0 {
		t.Fatalf("a fully enriched batch must issue no gated calls, got %d", stub.detailCalls)
	}
	if patched != 0 {
		t.Fatalf("nothing changed, nothing to patch, got %d patches", patched)
	}
	if persisted != 1 {
		t.Fatalf("the pass still completes and persists once, got %d", persisted)
	}
}

func TestRunSkipsPlaceholders(t *testing.T) {
	stub := &stubDetails{
		runtimes: map[int64]int{1: 120},
		imdbIDs:  map[int64]string{},
	}
	movies := []models.Movie{
		{ID: 1, Title: "Resolved"},
		{Title: "Placeholder"},
	}

	var patched []int
	NewPipeline(stub).Run(context.Background(), movies, func(index int, movie models.Movie) {
		patched = append(patched, index)
	}, nil)

	if len(patched) != 1 || patched[0] != 0 {
		t.Fatalf("only the resolved record may be patched, got %v", patched)
	}
	if movies[1].Runtime != 0 {
		t.Fatalf("placeholder must stay untouched: %+v", movies[1])
	}
}

func TestRunDoesNotDowngradeKnownRuntime(t *testing.T) {
	stub := &stubDetails{
		runtimes: map[int64]int{1: 0},
		imdbIDs:  map[int64]string{},
	}
	movies := []models.Movie{{ID: 1, Title: "Known", Runtime: 148}}

	NewPipeline(stub).Run(context.Background(), movies, nil, nil)
	if movies[0].Runtime != 148 {
		t.Fatalf("known runtime must survive an unknown provider value, got %d", movies[0].Runtime)
	}
}

func TestSupersededRunStopsPatchingAndPersisting(t *testing.T) {
	stub := &stubDetails{
		runtimes: map[int64]int{1: 100, 2: 100, 3: 100},
		imdbIDs:  map[int64]string{},
	}

	p := NewPipeline(stub)
	// A newer run starts while item 2 is in flight.
	stub.onDetails = func(tmdbID int64) {
		if tmdbID == 2 {
			p.begin()
		}
	}

	movies := []models.Movie{{ID: 1}, {ID: 2}, {ID: 3}}
	var patched, persisted int
	p.Run(context.Background(), movies, func(index int, movie models.Movie) {
		patched++
	}, func(batch []models.Movie) {
		persisted++
	})

	if patched != 1 {
		t.Fatalf("superseded run must stop patching, got %d patches", patched)
	}
	if persisted != 0 {
		t.Fatalf("superseded run must not persist, got %d persists", persisted)
	}
}
