package memory

import (
	"context"
	"errors"
	"slices"
	"testing"

	"boxmark/internal/annotation"
	"boxmark/internal/store"
)

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.Load(ctx, "missing.png")
	if err != nil || len(got) != 0 {
		t.Fatalf("Load missing = %v, %v", got, err)
	}

	anns := []annotation.Annotation{{ID: "a", Width: 10, Height: 10, Confidence: 1}}
	if err := s.Save(ctx, "a.png", anns); err != nil {
		t.Fatalf("Save: %v", err)
	}
	anns[0].X = 500

	got, err = s.Load(ctx, "a.png")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].X != 0 {
		t.Fatal("store aliases caller slice")
	}

	ids, _ := s.Annotated(ctx)
	if !slices.Equal(ids, []string{"a.png"}) {
		t.Fatalf("Annotated = %v", ids)
	}

	if err := s.Save(ctx, "a.png", nil); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	if ids, _ := s.Annotated(ctx); len(ids) != 0 {
		t.Fatalf("Annotated after clear = %v", ids)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := New()
	err := s.Save(context.Background(), "a.png", []annotation.Annotation{{ID: "a", Width: 1, Height: 1}})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Save error = %v, want ErrValidation", err)
	}
	if err := s.Save(context.Background(), "", nil); !errors.Is(err, store.ErrEmptyKey) {
		t.Fatalf("Save empty key = %v", err)
	}
}
