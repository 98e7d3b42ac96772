package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"boxmark/internal/annotation"
	"boxmark/internal/persist"
	"boxmark/internal/settings"
	"boxmark/internal/store"
	"boxmark/internal/store/blob"
	"boxmark/internal/store/file"
	"boxmark/internal/store/memory"
	"boxmark/internal/store/postgres"
)

// openStore builds the annotation store selected in s. The file store
// defaults to a hidden directory inside the dataset root.
func openStore(ctx context.Context, s *settings.Settings, root string, logger *slog.Logger) (store.Store, error) {
	if err := s.FinalizeStore(); err != nil {
		return nil, err
	}

	switch s.Store.Kind {
	case settings.StoreMemory:
		logger.Warn("annotations are kept in memory only")
		return memory.New(), nil
	case settings.StorePostgres:
		return postgres.Open(ctx, &s.Store.Postgres, logger)
	case settings.StoreBlob:
		st, err := blob.New(&s.Store.Blob, logger)
		if err != nil {
			return nil, err
		}
		if err := st.Start(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		dir := s.Store.Dir
		if dir == "" {
			dir = filepath.Join(root, storeDirName)
		}
		return file.New(dir)
	}
}

// seedAnnotated tells the synchronizer which images already carry
// annotations, when the store can list them.
func seedAnnotated(ctx context.Context, st store.Store, syncer *persist.Synchronizer, logger *slog.Logger) {
	lister, ok := st.(store.Lister)
	if !ok {
		return
	}
	ids, err := lister.Annotated(ctx)
	if err != nil {
		logger.Warn("failed to list annotated images", "error", err)
		return
	}
	syncer.SeedAnnotated(ids)
}

func closeStore(st store.Store) error {
	if c, ok := st.(store.Closer); ok {
		return c.Close()
	}
	return nil
}

// loadClasses reads the class file, falling back to the built-in classes.
func loadClasses(path string, logger *slog.Logger) (*annotation.Registry, error) {
	if path == "" {
		return annotation.NewRegistry(annotation.DefaultClasses()), nil
	}
	classes, err := annotation.LoadClasses(path)
	if err != nil {
		return nil, err
	}
	reg := annotation.NewRegistry(classes)
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%s: no valid classes", path)
	}
	if dropped := len(classes) - reg.Len(); dropped > 0 {
		logger.Warn("classes skipped", "file", path, "count", dropped)
	}
	return reg, nil
}
