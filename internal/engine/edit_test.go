package engine

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
	"boxmark/internal/settings"
	"boxmark/internal/store"
)

func TestNudge(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 0, 5, 50, 50))

	if e.Nudge(1, 0, false) {
		t.Fatal("nudged with empty selection")
	}
	e.SelectAll()

	if e.Nudge(-1, 0, false) {
		t.Fatal("nudge past the left edge should be a no-op")
	}
	if !e.Nudge(1, 1, true) {
		t.Fatal("shift nudge failed")
	}
	if got := e.Annotations()[0].Rect(); got != geometry.R(10, 15, 50, 50) {
		t.Fatalf("nudged = %v", got)
	}
	if !e.Nudge(0, -1, false) {
		t.Fatal("nudge up failed")
	}
	if got := e.Annotations()[0].Y; got != 14 {
		t.Fatalf("y = %v, want 14", got)
	}
	if !e.Undo() || e.Annotations()[0].Y != 15 {
		t.Fatal("nudge not undoable")
	}
}

func TestNudgeClampsAfterSnap(t *testing.T) {
	e, _ := setup(t, func(ed *settings.Editor) { ed.SnapToGrid = true })
	seed(t, e, box("a", 3, 40, 50, 50))
	e.SelectAll()
	if !e.Nudge(-1, 0, true) {
		t.Fatal("nudge failed")
	}
	if got := e.Annotations()[0].X; got != 0 {
		t.Fatalf("x = %v, want 0", got)
	}
}

func TestDelete(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 0, 0, 20, 20), box("b", 50, 50, 20, 20), box("c", 100, 100, 20, 20))
	click(e, left(10, 10))
	click(e, ctrlLeft(110, 110))

	if !e.Delete() {
		t.Fatal("delete failed")
	}
	if ids := annotation.IDs(e.Annotations()); !slices.Equal(ids, []string{"b"}) {
		t.Fatalf("remaining = %v", ids)
	}
	if len(e.Selection()) != 0 {
		t.Fatal("deleted ids still selected")
	}
	if e.Delete() {
		t.Fatal("delete with empty selection")
	}
	e.Undo()
	if len(e.Annotations()) != 3 {
		t.Fatal("delete not undoable")
	}
}

func TestCopyPaste(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 100, 100, 20, 20))
	if e.Paste() {
		t.Fatal("paste with empty clipboard")
	}
	e.SelectAll()
	copied := e.Copy()
	if len(copied) != 1 || copied[0].ID != "a" {
		t.Fatalf("copied = %+v", copied)
	}

	if !e.Paste() {
		t.Fatal("paste failed")
	}
	anns := e.Annotations()
	if len(anns) != 2 {
		t.Fatalf("annotations = %d", len(anns))
	}
	pasted := anns[1]
	if pasted.ID == "a" || pasted.Rect() != geometry.R(110, 110, 20, 20) {
		t.Fatalf("pasted = %+v", pasted)
	}
	if !slices.Equal(e.Selection(), []string{pasted.ID}) {
		t.Fatalf("selection = %v, want the pasted copy", e.Selection())
	}

	// A second paste gets fresh ids again.
	e.Paste()
	if ids := annotation.IDs(e.Annotations()); len(ids) != 3 || ids[2] == pasted.ID {
		t.Fatalf("ids = %v", ids)
	}
}

func TestPasteFrom(t *testing.T) {
	e, _ := setup(t, nil)
	if !e.PasteFrom([]annotation.Annotation{box("ext", 0, 0, 30, 30), box("tiny", 0, 0, 2, 2)}) {
		t.Fatal("PasteFrom failed")
	}
	anns := e.Annotations()
	if len(anns) != 1 || anns[0].Rect() != geometry.R(10, 10, 30, 30) {
		t.Fatalf("annotations = %+v", anns)
	}
}

func TestDuplicate(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 0, 0, 20, 20), box("b", 50, 50, 20, 20))
	if e.Duplicate() {
		t.Fatal("duplicate with empty selection")
	}
	e.SelectAll()
	if !e.Duplicate() {
		t.Fatal("duplicate failed")
	}
	anns := e.Annotations()
	if len(anns) != 4 || len(e.Selection()) != 2 {
		t.Fatalf("annotations=%d selection=%v", len(anns), e.Selection())
	}
	if anns[2].Rect() != geometry.R(10, 10, 20, 20) || anns[3].Rect() != geometry.R(60, 60, 20, 20) {
		t.Fatalf("duplicates = %v, %v", anns[2].Rect(), anns[3].Rect())
	}
}

func TestChangeClass(t *testing.T) {
	e, saver := setup(t, nil)
	seed(t, e, box("a", 0, 0, 20, 20), box("b", 50, 50, 20, 20))
	click(e, left(60, 60))
	before := saver.saves

	if !e.ChangeClass(3) {
		t.Fatal("change class failed")
	}
	anns := e.Annotations()
	if anns[0].ClassID != 0 || anns[1].ClassID != 3 {
		t.Fatalf("classes = %d, %d", anns[0].ClassID, anns[1].ClassID)
	}
	if e.ChangeClass(3) {
		t.Fatal("same class should be a no-op")
	}
	if saver.saves != before+1 {
		t.Fatalf("saves = %d", saver.saves)
	}
}

func TestImport(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 0, 0, 20, 20))

	n, err := e.Import([]annotation.Annotation{
		box("a", 30, 30, 20, 20),
		{X: 100, Y: 100, Width: -40, Height: -40, Confidence: 3},
		box("tiny", 0, 0, 1, 1),
		{ID: "nan", X: 200, Y: 200, Width: 20, Height: 20, Confidence: math.NaN()},
		{ID: "zero", X: 300, Y: 300, Width: 20, Height: 20, Confidence: 0},
	})
	if err != nil || n != 4 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	anns := e.Annotations()
	if len(anns) != 5 {
		t.Fatalf("annotations = %d", len(anns))
	}
	if anns[3].Confidence != 1 || anns[4].Confidence != 0 {
		t.Fatalf("confidence = %v, %v, want 1, 0", anns[3].Confidence, anns[4].Confidence)
	}
	if _, err := store.Encode("img-1", anns, time.Now()); err != nil {
		t.Fatalf("imported set not storable: %v", err)
	}
	if anns[1].ID == "a" || anns[1].ID == "" {
		t.Fatalf("colliding id kept: %q", anns[1].ID)
	}
	if anns[2].Rect() != geometry.R(60, 60, 40, 40) || anns[2].Confidence != 1 {
		t.Fatalf("imported = %+v", anns[2])
	}

	// One undo removes the whole import.
	e.Undo()
	if len(e.Annotations()) != 1 {
		t.Fatal("import not a single history entry")
	}
}

func TestImportErrors(t *testing.T) {
	e := New(Config{Editor: settings.Default().Editor}, nil, newFakeSaver(), discard())
	if _, err := e.Import([]annotation.Annotation{box("a", 0, 0, 20, 20)}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}

	e, _ = setup(t, nil)
	e.PointerDown(left(10, 10))
	if _, err := e.Import([]annotation.Annotation{box("a", 0, 0, 20, 20)}); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestEditsRefusedMidGesture(t *testing.T) {
	e, _ := setup(t, nil)
	drag(e, left(10, 10), left(60, 60))
	e.PointerDown(left(200, 200))
	e.PointerMove(left(260, 260))
	if e.Undo() {
		t.Fatal("undo applied mid-gesture")
	}
	e.PointerUp(left(260, 260))
	if len(e.Annotations()) != 2 {
		t.Fatal("second draw lost")
	}
}

func TestSelectNext(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 0, 0, 20, 20), box("b", 50, 50, 20, 20), box("c", 100, 100, 20, 20))

	e.SelectNext(1)
	if p, _ := e.Primary(); p != "a" {
		t.Fatalf("primary = %q, want a", p)
	}
	e.SelectNext(-1)
	if p, _ := e.Primary(); p != "c" {
		t.Fatalf("primary = %q, want c", p)
	}
	e.SelectNext(1)
	if p, _ := e.Primary(); p != "a" {
		t.Fatalf("primary = %q, want wrap to a", p)
	}

	e.ClearSelection()
	e.SelectNext(-1)
	if p, _ := e.Primary(); p != "c" {
		t.Fatalf("primary = %q, want c", p)
	}
}

func TestSelectAllHidden(t *testing.T) {
	e, _ := setup(t, nil)
	seed(t, e, box("a", 0, 0, 20, 20))
	e.ToggleAnnotations()
	e.SelectAll()
	if len(e.Selection()) != 0 {
		t.Fatal("selected hidden annotations")
	}
}
