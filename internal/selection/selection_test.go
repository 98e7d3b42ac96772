package selection

import (
	"slices"
	"testing"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
)

func ann(id string, x, y, w, h float64) annotation.Annotation {
	return annotation.Annotation{ID: id, X: x, Y: y, Width: w, Height: h, Confidence: 1}
}

func TestHitTestPrefersTopmost(t *testing.T) {
	anns := []annotation.Annotation{
		ann("bottom", 0, 0, 100, 100),
		ann("top", 50, 50, 100, 100),
	}
	if id, ok := HitTest(anns, geometry.Pt(75, 75)); !ok || id != "top" {
		t.Fatalf("HitTest overlap = %q, %v; want top", id, ok)
	}
	if id, ok := HitTest(anns, geometry.Pt(10, 10)); !ok || id != "bottom" {
		t.Fatalf("HitTest = %q, %v; want bottom", id, ok)
	}
	if _, ok := HitTest(anns, geometry.Pt(500, 500)); ok {
		t.Fatal("expected miss on empty canvas")
	}
}

func TestMarqueeInclusion(t *testing.T) {
	anns := []annotation.Annotation{
		ann("r1", 0, 0, 10, 10),
		ann("r2", 20, 20, 10, 10),
	}
	got := Marquee(anns, geometry.R(5, 5, 10, 10))
	if !slices.Equal(got, []string{"r1"}) {
		t.Fatalf("Marquee = %v, want [r1]", got)
	}
	got = Marquee(anns, geometry.R(25, 25, -20, -20))
	if !slices.Equal(got, []string{"r1", "r2"}) {
		t.Fatalf("inverted marquee = %v, want [r1 r2]", got)
	}
}

func TestSelectionSemantics(t *testing.T) {
	var s Selection
	if _, ok := s.Primary(); ok {
		t.Fatal("empty selection has no primary")
	}
	if !s.SelectSingle("a") {
		t.Fatal("SelectSingle should report a change")
	}
	s.Toggle("b")
	s.Toggle("c")
	if p, _ := s.Primary(); p != "c" {
		t.Fatalf("primary = %q, want c", p)
	}
	s.Toggle("c")
	if p, _ := s.Primary(); p != "b" {
		t.Fatalf("primary after toggle-off = %q, want b", p)
	}
	if s.Add("a", "b") {
		t.Fatal("Add of existing members should not change selection")
	}
	if s.SelectSingle("b") != true || !slices.Equal(s.IDs(), []string{"b"}) {
		t.Fatalf("SelectSingle did not replace: %v", s.IDs())
	}
	if !s.SelectSingle("") || !s.Empty() {
		t.Fatal("SelectSingle(\"\") should clear")
	}
}

func TestPrune(t *testing.T) {
	var s Selection
	s.Set([]string{"a", "gone", "b"})
	changed := s.Prune([]annotation.Annotation{ann("a", 0, 0, 5, 5), ann("b", 0, 0, 5, 5)})
	if !changed || !slices.Equal(s.IDs(), []string{"a", "b"}) {
		t.Fatalf("Prune = %v, %v", changed, s.IDs())
	}
}

func TestTransformerBinding(t *testing.T) {
	anns := []annotation.Annotation{
		ann("a", 0, 0, 10, 10),
		ann("b", 20, 30, 10, 10),
	}
	var tr Transformer
	tr.Bind([]string{"a", "missing", "b"}, anns)
	if !slices.Equal(tr.Nodes(), []string{"a", "b"}) {
		t.Fatalf("nodes = %v", tr.Nodes())
	}
	if tr.Box() != geometry.R(0, 0, 30, 40) {
		t.Fatalf("box = %v", tr.Box())
	}
	if got := tr.HitHandle(geometry.Pt(29, 41), 2); got != BottomRight {
		t.Fatalf("HitHandle = %v, want bottom-right", got)
	}
	if got := tr.HitHandle(geometry.Pt(15, 20), 2); got != HandleNone {
		t.Fatalf("HitHandle centre = %v, want none", got)
	}

	tr.Bind(nil, anns)
	if tr.Visible() || tr.Handles() != nil {
		t.Fatal("transformer should hide with empty selection")
	}
}

func TestHandleApply(t *testing.T) {
	orig := geometry.R(10, 10, 40, 20)
	tests := []struct {
		name  string
		h     Handle
		p     geometry.Point
		ratio float64
		want  geometry.Rect
	}{
		{"bottom-right free", BottomRight, geometry.Pt(70, 50), 0, geometry.R(10, 10, 60, 40)},
		{"top-left free", TopLeft, geometry.Pt(0, 5), 0, geometry.R(50, 30, -50, -25)},
		{"right edge", Right, geometry.Pt(30, 999), 0, geometry.R(10, 10, 20, 20)},
		{"top edge", Top, geometry.Pt(999, 0), 0, geometry.R(10, 30, 40, -30)},
		{"corner locked", BottomRight, geometry.Pt(90, 20), 2, geometry.R(10, 10, 80, 40)},
		{"edge locked", Right, geometry.Pt(50, 0), 2, geometry.R(10, 10, 40, 20)},
		{"vertical edge locked", Bottom, geometry.Pt(0, 50), 2, geometry.R(10, 10, 80, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.h.Apply(orig, tt.p, tt.ratio); got != tt.want {
				t.Fatalf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}
