// Package file stores one JSON document per image under a directory tree
// mirroring the image ids.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"boxmark/internal/annotation"
	"boxmark/internal/store"
)

const suffix = ".boxes.json"

type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory required", store.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(imageID string) string {
	return filepath.Join(s.dir, filepath.FromSlash(imageID)+suffix)
}

func (s *Store) Load(ctx context.Context, imageID string) ([]annotation.Annotation, error) {
	if err := store.ValidateKey(imageID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(imageID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", imageID, err)
	}
	doc, err := store.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", imageID, err)
	}
	return doc.Annotations, nil
}

// Save writes through a temp file and rename so readers never see a partial
// document. An empty set removes the file.
func (s *Store) Save(ctx context.Context, imageID string, anns []annotation.Annotation) error {
	if err := store.ValidateKey(imageID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(imageID)
	if len(anns) == 0 {
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", imageID, err)
		}
		return nil
	}

	data, err := store.Encode(imageID, anns, s.now())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", imageID, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".boxmark-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", imageID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", imageID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replace %s: %w", imageID, err)
	}
	return nil
}

func (s *Store) Annotated(ctx context.Context) ([]string, error) {
	var ids []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, suffix) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, suffix)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan store directory: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}
