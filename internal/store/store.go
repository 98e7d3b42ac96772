// Package store defines the backend contract the persistence synchronizer
// writes through, plus the JSON document shared by the file and blob backends.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"boxmark/internal/annotation"
)

// Store loads and saves the full annotation set of one image.
type Store interface {
	// Load returns the stored set for imageID. A missing image yields an
	// empty set and no error.
	Load(ctx context.Context, imageID string) ([]annotation.Annotation, error)
	// Save replaces the stored set for imageID.
	Save(ctx context.Context, imageID string, anns []annotation.Annotation) error
}

// Lister is implemented by stores that can enumerate images holding at least
// one annotation.
type Lister interface {
	Annotated(ctx context.Context) ([]string, error)
}

// Closer is implemented by stores holding connections.
type Closer interface {
	Close() error
}

// Document is the on-disk and in-blob form of one image's annotations.
type Document struct {
	ImageID     string                  `json:"image_id"`
	UpdatedAt   time.Time               `json:"updated_at"`
	Annotations []annotation.Annotation `json:"annotations"`
}

// Encode marshals anns for imageID after validating them.
func Encode(imageID string, anns []annotation.Annotation, now time.Time) ([]byte, error) {
	if err := Validate(anns); err != nil {
		return nil, err
	}
	doc := Document{
		ImageID:     imageID,
		UpdatedAt:   now.UTC(),
		Annotations: annotation.Clone(anns),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a document and sanitizes its annotations. Entries that cannot
// be committed are dropped.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: decode document: %w", ErrValidation, err)
	}
	kept := make([]annotation.Annotation, 0, len(doc.Annotations))
	for _, a := range doc.Annotations {
		if s, ok := annotation.Sanitize(a); ok {
			kept = append(kept, s)
		}
	}
	doc.Annotations = kept
	return doc, nil
}

// Validate rejects sets that the engine would never commit.
func Validate(anns []annotation.Annotation) error {
	seen := make(map[string]struct{}, len(anns))
	for _, a := range anns {
		if a.ID == "" {
			return fmt.Errorf("%w: annotation without id", ErrValidation)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate annotation id %s", ErrValidation, a.ID)
		}
		seen[a.ID] = struct{}{}
		if _, ok := annotation.Sanitize(a); !ok || a.Width <= 0 || a.Height <= 0 {
			return fmt.Errorf("%w: annotation %s below minimum size", ErrValidation, a.ID)
		}
		if !annotation.ValidConfidence(a.Confidence) {
			return fmt.Errorf("%w: annotation %s confidence %v out of range", ErrValidation, a.ID, a.Confidence)
		}
	}
	return nil
}

// ValidateKey checks an image id before it is used as a path or blob name.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, "\\\x00") {
		return ErrInvalidKey
	}
	return nil
}
