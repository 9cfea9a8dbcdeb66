// Package store keeps the meal log. The whole log is persisted as one JSON
// blob under a single key of a key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/franckalain/nutrisnap/internal/models"
)

// DefaultKey is the storage key the meal log is saved under
const DefaultKey = "nutrisnap_meals"

var (
	// ErrPersist marks failures of the persistence step. The in-memory log
	// already reflects the change when it is returned.
	ErrPersist = errors.New("failed to persist meals")
	// ErrDuplicateID is returned when appending a meal whose id is taken
	ErrDuplicateID = errors.New("meal id already exists")
	// ErrInvalidMeal is returned for meals without an id
	ErrInvalidMeal = errors.New("meal id is required")
)

// Persister is the key-value port the log is saved through
type Persister interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}

// MealStore is the in-memory meal log backed by a Persister
type MealStore struct {
	mu      sync.RWMutex
	meals   []models.Meal
	version uint64 // bumped by every mutation, guarded by mu

	// persistMu orders writes to kv; saved is the version last written
	persistMu sync.Mutex
	saved     uint64

	kv  Persister
	key string
}

// New creates an empty store. Call Load to read the persisted log.
func New(kv Persister, key string) *MealStore {
	if key == "" {
		key = DefaultKey
	}
	return &MealStore{kv: kv, key: key}
}

// Load replaces the in-memory log with the persisted one. On error the
// in-memory log is left empty.
func (s *MealStore) Load(ctx context.Context) error {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to load meals: %w", err)
	}

	var meals []models.Meal
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &meals); err != nil {
			return fmt.Errorf("failed to parse stored meals: %w", err)
		}
	}

	s.persistMu.Lock()
	s.mu.Lock()
	s.meals = meals
	s.version++
	s.saved = s.version
	s.mu.Unlock()
	s.persistMu.Unlock()

	log.Printf("Loaded %d meals from %s", len(meals), s.key)
	return nil
}

// Append records meal. The meal is either fully added or not at all; a
// persistence failure is reported with ErrPersist but the meal stays.
func (s *MealStore) Append(ctx context.Context, meal models.Meal) error {
	if meal.ID == "" {
		return ErrInvalidMeal
	}

	s.mu.Lock()
	for _, m := range s.meals {
		if m.ID == meal.ID {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateID, meal.ID)
		}
	}
	s.meals = append([]models.Meal{meal}, s.meals...)
	s.version++
	s.mu.Unlock()

	return s.persist(ctx)
}

// Remove deletes the meal with id. Removing an absent id is a no-op.
func (s *MealStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, m := range s.meals {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return nil
	}
	s.meals = append(s.meals[:idx:idx], s.meals[idx+1:]...)
	s.version++
	s.mu.Unlock()

	return s.persist(ctx)
}

// ClearDay removes every meal logged on day's local calendar date and
// returns how many were removed
func (s *MealStore) ClearDay(ctx context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	kept := make([]models.Meal, 0, len(s.meals))
	for _, m := range s.meals {
		if !m.SameDay(day) {
			kept = append(kept, m)
		}
	}
	removed := len(s.meals) - len(kept)
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	s.meals = kept
	s.version++
	s.mu.Unlock()

	return removed, s.persist(ctx)
}

// Get returns the meal with id
func (s *MealStore) Get(id string) (models.Meal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.meals {
		if m.ID == id {
			return m, true
		}
	}
	return models.Meal{}, false
}

// List returns a copy of the log, newest first
func (s *MealStore) List() []models.Meal {
	s.mu.RLock()
	meals := append([]models.Meal(nil), s.meals...)
	s.mu.RUnlock()

	sortNewestFirst(meals)
	return meals
}

// Today returns the aggregate and the meals for now's calendar day
func (s *MealStore) Today(now time.Time) (models.DailyAggregate, []models.Meal) {
	return DailyAggregate(s.List(), now)
}

// Week returns the aggregate from the start of now's week (Sunday) to the
// end of today
func (s *MealStore) Week(now time.Time) models.RangeAggregate {
	start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	return RangeAggregate(s.List(), start, startOfDay(now).AddDate(0, 0, 1))
}

// persist writes the current log. Writes are serialized and each one takes
// its snapshot after acquiring persistMu, so the last write always carries
// every mutation that preceded it. A mutation already covered by a newer
// write returns without writing again.
func (s *MealStore) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	version := s.version
	meals := append([]models.Meal{}, s.meals...)
	s.mu.RUnlock()

	if version <= s.saved {
		return nil
	}

	sortNewestFirst(meals)
	data, err := json.Marshal(meals)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		log.Printf("Failed to save meals: %v", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.saved = version
	return nil
}

func sortNewestFirst(meals []models.Meal) {
	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].Timestamp > meals[j].Timestamp
	})
}
