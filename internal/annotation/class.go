package annotation

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FallbackColor is used for annotations whose class no longer resolves.
const FallbackColor = "#00e0ff"

const maxClassName = 100

// Class is a label category.
type Class struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (c Class) Validate() error {
	n := utf8.RuneCountInString(c.Name)
	if n < 1 || n > maxClassName {
		return fmt.Errorf("%w: class %d name must be 1-%d characters", ErrInvalidClass, c.ID, maxClassName)
	}
	return nil
}

// RGBA parses the class colour, falling back to FallbackColor.
func (c Class) RGBA() color.RGBA {
	if rgba, ok := ParseHex(c.Color); ok {
		return rgba
	}
	rgba, _ := ParseHex(FallbackColor)
	return rgba
}

// Registry is the read-mostly class list. Lookups tolerate unknown ids.
type Registry struct {
	classes []Class
	byID    map[int]int
}

// NewRegistry builds a registry, skipping classes that fail validation or
// duplicate an earlier id.
func NewRegistry(classes []Class) *Registry {
	r := &Registry{byID: make(map[int]int, len(classes))}
	for _, c := range classes {
		if c.Validate() != nil {
			continue
		}
		if _, dup := r.byID[c.ID]; dup {
			continue
		}
		r.byID[c.ID] = len(r.classes)
		r.classes = append(r.classes, c)
	}
	return r
}

// DefaultClasses is used when no class file is supplied.
func DefaultClasses() []Class {
	return []Class{
		{ID: 0, Name: "object", Color: "#00e0ff"},
		{ID: 1, Name: "person", Color: "#ff5f87"},
		{ID: 2, Name: "vehicle", Color: "#ffd75f"},
		{ID: 3, Name: "animal", Color: "#87ff87"},
	}
}

// LoadClasses reads a JSON array of classes.
func LoadClasses(path string) ([]Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	var classes []Class
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("parse classes: %w", err)
	}
	return classes, nil
}

func (r *Registry) Classes() []Class {
	if r == nil {
		return nil
	}
	return append([]Class(nil), r.classes...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.classes)
}

// Lookup returns the class with id.
func (r *Registry) Lookup(id int) (Class, bool) {
	if r == nil {
		return Class{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return Class{}, false
	}
	return r.classes[i], true
}

// Resolve never fails: unknown ids get a placeholder label and the fallback
// colour.
func (r *Registry) Resolve(id int) Class {
	if c, ok := r.Lookup(id); ok {
		return c
	}
	return Class{ID: id, Name: "class " + strconv.Itoa(id), Color: FallbackColor}
}

// At returns the class at position i in registry order.
func (r *Registry) At(i int) (Class, bool) {
	if r == nil || i < 0 || i >= len(r.classes) {
		return Class{}, false
	}
	return r.classes[i], true
}

// ParseHex parses #rgb or #rrggbb.
func ParseHex(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
