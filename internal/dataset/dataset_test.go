package dataset

import (
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 40, 30)
	writePNG(t, filepath.Join(dir, "a.PNG"), 10, 20)
	writePNG(t, filepath.Join(dir, "train", "c.png"), 64, 48)
	writePNG(t, filepath.Join(dir, ".cache", "hidden.png"), 8, 8)
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestOpen(t *testing.T) {
	d, err := Open(fixture(t), discard())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if want := []string{"a.PNG", "b.png", "train/c.png"}; !slices.Equal(d.IDs(), want) {
		t.Fatalf("ids = %v, want %v", d.IDs(), want)
	}
	img, _ := d.At(2)
	if img.Width != 64 || img.Height != 48 {
		t.Fatalf("size = %dx%d", img.Width, img.Height)
	}
	if s := img.Size(); s.Width != 64 || s.Height != 48 {
		t.Fatalf("viewport size = %v", s)
	}
	if d.Index("b.png") != 1 || d.Index("missing.png") != -1 {
		t.Fatal("index lookup wrong")
	}
}

func TestOpenEmpty(t *testing.T) {
	_, err := Open(t.TempDir(), discard())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestDecode(t *testing.T) {
	d, err := Open(fixture(t), discard())
	if err != nil {
		t.Fatal(err)
	}
	m, err := d.Decode(1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := m.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("bounds = %v", b)
	}
	if _, err := d.Decode(9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestNavigation(t *testing.T) {
	d := &Dataset{images: []Image{{ID: "0"}, {ID: "1"}, {ID: "2"}, {ID: "3"}}}
	annotated := func(id string) bool { return id == "1" || id == "2" }

	if d.Step(0, -1) != 0 || d.Step(3, 1) != 3 || d.Step(1, 1) != 2 {
		t.Fatal("step not clamped")
	}
	if j, ok := d.NextUnannotated(0, 1, annotated); !ok || j != 3 {
		t.Fatalf("next unannotated = %d, %v", j, ok)
	}
	if j, ok := d.NextUnannotated(3, -1, annotated); !ok || j != 0 {
		t.Fatalf("prev unannotated = %d, %v", j, ok)
	}
	if j, ok := d.NextUnannotated(3, 1, annotated); ok || j != 3 {
		t.Fatal("search should not wrap")
	}
	if got := d.Neighbors(1, 2); !slices.Equal(got, []string{"2", "0", "3"}) {
		t.Fatalf("neighbors = %v", got)
	}
	cells := d.Overview(0, annotated)
	if !slices.Equal(cells, []CellState{CellCurrent, CellAnnotated, CellAnnotated, CellEmpty}) {
		t.Fatalf("overview = %v", cells)
	}
	if d.Progress(annotated) != 2 {
		t.Fatal("progress wrong")
	}
}
