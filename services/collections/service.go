package collections

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"postergrid/models"
	"postergrid/services/localstore"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotInCollection   = errors.New("movie not in collection")
)

// Service owns the favorites and watchlist sets. Each collection is a
// mapping from movie id to its record plus the moment of first insertion,
// loaded best-effort at start and persisted in full after every mutation.
// Persistence failures are logged, never fatal: in-memory state may run
// ahead of durable state until the next successful save.
type Service struct {
	mu    sync.RWMutex
	store *localstore.Store
	sets  map[models.CollectionName]map[int64]models.CollectionItem

	// now is injectable for tests.
	now func() time.Time
}

// NewService loads both collections from the store. Corrupt or missing
// entries yield empty collections.
func NewService(store *localstore.Store) *Service {
	s := &Service{
		store: store,
		sets:  make(map[models.CollectionName]map[int64]models.CollectionItem),
		now:   time.Now,
	}
	for _, name := range []models.CollectionName{models.CollectionFavorites, models.CollectionWatchlist} {
		s.sets[name] = s.loadCollection(name)
	}
	return s
}

func (s *Service) loadCollection(name models.CollectionName) map[int64]models.CollectionItem {
	items := make(map[int64]models.CollectionItem)
	raw, ok := s.store.Get(collectionKey(name))
	if !ok {
		return items
	}

	var list []models.CollectionItem
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		log.Printf("[collections] corrupt %s collection discarded: %v", name, err)
		return items
	}
	for _, item := range list {
		if item.ID == 0 {
			continue
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now().UTC()
		}
		items[item.ID] = item
	}
	return items
}

// List returns a collection ordered by insertion time, oldest first, with
// id as the tie-break.
func (s *Service) List(name models.CollectionName) ([]models.CollectionItem, error) {
	if !models.ValidCollection(name) {
		return nil, ErrUnknownCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.sets[name]
	items := make([]models.CollectionItem, 0, len(set))
	for _, item := range set {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items, nil
}

// Contains reports membership without copying the collection.
func (s *Service) Contains(name models.CollectionName, id int64) bool {
	if !models.ValidCollection(name) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[name][id]
	return ok
}

// Add inserts a movie. Placeholder records (zero id) are a no-op: they can
// be displayed but never curated. Re-adding an existing id refreshes the
// movie fields and keeps the original AddedAt; a collection never holds
// the same id twice.
func (s *Service) Add(name models.CollectionName, movie models.Movie) error {
	if !models.ValidCollection(name) {
		return ErrUnknownCollection
	}
	if !movie.Resolved() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.sets[name][movie.ID]
	if !exists {
		item = models.CollectionItem{AddedAt: s.now().UTC()}
	}
	item.Movie = movie
	s.sets[name][movie.ID] = item

	s.persistLocked(name)
	return nil
}

// Remove deletes a movie from a collection. Returns whether it was there.
func (s *Service) Remove(name models.CollectionName, id int64) (bool, error) {
	if !models.ValidCollection(name) {
		return false, ErrUnknownCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[name][id]; !ok {
		return false, nil
	}
	delete(s.sets[name], id)
	s.persistLocked(name)
	return true, nil
}

// Toggle flips membership: present becomes absent and vice versa. Returns
// whether the movie is a member afterwards. Calling twice with the same id
// restores the original membership.
func (s *Service) Toggle(name models.CollectionName, movie models.Movie) (bool, error) {
	if !models.ValidCollection(name) {
		return false, ErrUnknownCollection
	}
	if !movie.Resolved() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[name][movie.ID]; ok {
		delete(s.sets[name], movie.ID)
		s.persistLocked(name)
		return false, nil
	}
	s.sets[name][movie.ID] = models.CollectionItem{Movie: movie, AddedAt: s.now().UTC()}
	s.persistLocked(name)
	return true, nil
}

// Clear empties a collection unconditionally. Any confirmation gate is the
// caller's responsibility.
func (s *Service) Clear(name models.CollectionName) error {
	if !models.ValidCollection(name) {
		return ErrUnknownCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[name] = make(map[int64]models.CollectionItem)
	s.persistLocked(name)
	return nil
}

// Move transfers a movie between collections, keeping its original
// AddedAt. Moving onto an id already present in the target overwrites it.
func (s *Service) Move(from, to models.CollectionName, id int64) error {
	if !models.ValidCollection(from) || !models.ValidCollection(to) {
		return ErrUnknownCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.sets[from][id]
	if !ok {
		return fmt.Errorf("%w: id=%d collection=%s", ErrNotInCollection, id, from)
	}
	delete(s.sets[from], id)
	s.sets[to][id] = item
	s.persistLocked(from)
	s.persistLocked(to)
	return nil
}

// persistLocked serializes one collection into the store. Caller holds
// s.mu for writing.
func (s *Service) persistLocked(name models.CollectionName) {
	set := s.sets[name]
	items := make([]models.CollectionItem, 0, len(set))
	for _, item := range set {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})

	payload, err := json.Marshal(items)
	if err != nil {
		log.Printf("[collections] encode %s failed: %v", name, err)
		return
	}
	if err := s.store.Set(collectionKey(name), string(payload)); err != nil {
		log.Printf("[collections] persist %s failed: %v", name, err)
	}
}

func collectionKey(name models.CollectionName) string {
	return "collections:" + string(name)
}
