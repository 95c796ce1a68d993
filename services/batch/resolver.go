package batch

import (
	"context"
	"log"
	"strings"
	"time"

	"postergrid/models"
)

// defaultItemDelay smooths bursty UI-triggered batches on top of the
// admission window gating inside the metadata client.
const defaultItemDelay = 300 * time.Millisecond

// Progress is invoked after every item with the 1-based position.
type Progress func(index, total int, title string)

// Failure records why one title in a batch could not be resolved. Reason
// is the short user-facing message, never raw error text.
type Failure struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Outcome is the result of a batch run. Movies preserves input order and
// always has one entry per submitted title; unresolved titles appear as
// placeholder records with a zero ID.
type Outcome struct {
	Movies   []models.Movie `json:"movies"`
	Failures []Failure      `json:"failures"`
}

type searcher interface {
	SearchByTitle(ctx context.Context, title string) (models.Movie, error)
}

// Resolver drives sequential resolution of a user-supplied title list.
type Resolver struct {
	meta      searcher
	itemDelay time.Duration
	sleep     func(context.Context, time.Duration) error
}

// NewResolver creates a resolver with the given inter-item delay;
// delay <= 0 selects the default.
func NewResolver(meta searcher, delay time.Duration) *Resolver {
	if delay <= 0 {
		delay = defaultItemDelay
	}
	return &Resolver{meta: meta, itemDelay: delay, sleep: sleepCtx}
}

// Resolve looks up each title in order. A failed item never aborts the
// batch: it yields a placeholder record and a Failure entry, and the loop
// moves on. Returns early only on context cancellation.
func (r *Resolver) Resolve(ctx context.Context, titles []string, progress Progress) (Outcome, error) {
	outcome := Outcome{
		Movies:   make([]models.Movie, 0, len(titles)),
		Failures: make([]Failure, 0),
	}

	for i, title := range titles {
		movie, err := r.meta.SearchByTitle(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			log.Printf("[batch] resolve failed title=%q: %v", title, err)
			movie = models.Movie{Title: title}
			outcome.Failures = append(outcome.Failures, Failure{
				Title:  title,
				Reason: models.UserMessage(err),
			})
		}
		outcome.Movies = append(outcome.Movies, movie)

		if progress != nil {
			progress(i+1, len(titles), title)
		}

		if i < len(titles)-1 {
			if err := r.sleep(ctx, r.itemDelay); err != nil {
				return outcome, err
			}
		}
	}

	return outcome, nil
}

// ParseTitles splits bulk input (pasted text or an uploaded list) into
// titles: one per non-empty trimmed line, nothing more.
func ParseTitles(text string) []string {
	lines := strings.Split(text, "\n")
	titles := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			titles = append(titles, trimmed)
		}
	}
	return titles
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
