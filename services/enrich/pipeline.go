package enrich

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"postergrid/models"
)

// Patch notifies the presentation layer that one already-rendered record
// changed. Records are addressed by movie id via the passed record, not by
// position, so patches stay correct after the user reorders the grid.
type Patch func(index int, movie models.Movie)

// Persist re-caches the whole batch once the pass completes.
type Persist func(movies []models.Movie)

type detailsSource interface {
	MovieDetails(ctx context.Context, tmdbID int64) (models.Movie, string, error)
	LookupAwards(ctx context.Context, imdbID string) (*models.AwardSummary, error)
}

// Pipeline is the best-effort secondary pass that upgrades curated batches
// with runtime and award data after the primary render. Items are
// processed strictly one at a time: every lookup shares the single
// admission window, and a concurrent fan-out would defeat its accounting.
type Pipeline struct {
	meta detailsSource

	mu         sync.Mutex
	generation uuid.UUID
}

func NewPipeline(meta detailsSource) *Pipeline {
	return &Pipeline{meta: meta}
}

// begin registers a new run and supersedes any older one.
func (p *Pipeline) begin() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation = uuid.New()
	return p.generation
}

func (p *Pipeline) current(gen uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation == gen
}

// Run enriches movies in place, invoking patch after every upgraded item
// and persist once at the end. Single-item failures are logged and
// skipped; they never abort the rest of the pass. A run silently stops
// patching when a newer run has started, so stale passes cannot write
// into collections the user has already replaced.
func (p *Pipeline) Run(ctx context.Context, movies []models.Movie, patch Patch, persist Persist) {
	gen := p.begin()

	for i := range movies {
		if ctx.Err() != nil {
			return
		}
		if !p.current(gen) {
			log.Printf("[enrich] run superseded after %d/%d items", i, len(movies))
			return
		}
		if !movies[i].Resolved() {
			continue
		}

		if !p.enrichOne(ctx, &movies[i]) {
			continue
		}
		if patch != nil && p.current(gen) {
			patch(i, movies[i])
		}
	}

	if persist != nil && p.current(gen) {
		persist(movies)
	}
}

// enrichOne upgrades a single record. Known values are never downgraded:
// enrichment only moves fields from "unknown" to a concrete value.
func (p *Pipeline) enrichOne(ctx context.Context, movie *models.Movie) bool {
	// Nothing left to upgrade; do not spend an admission slot confirming it.
	if movie.Runtime > 0 && movie.HasAwards {
		return false
	}

	details, imdbID, err := p.meta.MovieDetails(ctx, movie.ID)
	if err != nil {
		log.Printf("[enrich] details fetch failed title=%q tmdbId=%d: %v", movie.Title, movie.ID, err)
		return false
	}

	changed := false
	if movie.Runtime == 0 && details.Runtime > 0 {
		movie.Runtime = details.Runtime
		changed = true
	}

	if imdbID != "" && !movie.HasAwards {
		summary, err := p.meta.LookupAwards(ctx, imdbID)
		if err != nil {
			log.Printf("[enrich] awards lookup failed title=%q imdbId=%s: %v", movie.Title, imdbID, err)
		} else if summary != nil {
			movie.HasAwards = summary.HasAwards
			movie.AwardCount = summary.Count
			changed = true
		}
	}

	return changed
}
