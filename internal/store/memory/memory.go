// Package memory is an in-process Store used for scratch sessions and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"boxmark/internal/annotation"
	"boxmark/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	sets map[string][]annotation.Annotation
}

func New() *Store {
	return &Store{sets: make(map[string][]annotation.Annotation)}
}

func (s *Store) Load(ctx context.Context, imageID string) ([]annotation.Annotation, error) {
	if err := store.ValidateKey(imageID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return annotation.Clone(s.sets[imageID]), nil
}

func (s *Store) Save(ctx context.Context, imageID string, anns []annotation.Annotation) error {
	if err := store.ValidateKey(imageID); err != nil {
		return err
	}
	if err := store.Validate(anns); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(anns) == 0 {
		delete(s.sets, imageID)
		return nil
	}
	s.sets[imageID] = annotation.Clone(anns)
	return nil
}

func (s *Store) Annotated(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sets))
	for id := range s.sets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
