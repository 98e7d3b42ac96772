// Package stats summarizes annotation geometry per class.
package stats

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
)

// Measure is the mean and standard deviation of one quantity.
type Measure struct {
	Mean   float64
	StdDev float64
}

type ClassStats struct {
	ClassID int
	Name    string
	Count   int
	Width   Measure
	Height  Measure
	Area    Measure
	// Confidence is the mean confidence.
	Confidence float64
}

// Summary covers a set of annotations, usually one image or the whole
// annotated dataset.
type Summary struct {
	Total   int
	Classes []ClassStats
}

// Summarize groups anns by class in registry order. Classes without
// annotations are left out; unknown class ids follow the registered ones.
func Summarize(anns []annotation.Annotation, classes *annotation.Registry) Summary {
	type series struct {
		w, h, area, conf []float64
	}
	groups := make(map[int]*series)
	for _, a := range anns {
		s, ok := groups[a.ClassID]
		if !ok {
			s = &series{}
			groups[a.ClassID] = s
		}
		s.w = append(s.w, a.Width)
		s.h = append(s.h, a.Height)
		s.area = append(s.area, a.Width*a.Height)
		s.conf = append(s.conf, a.Confidence)
	}

	order := make(map[int]int)
	for i, c := range classes.Classes() {
		order[c.ID] = i
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b int) int {
		ia, oka := order[a]
		ib, okb := order[b]
		switch {
		case oka && okb:
			return cmp.Compare(ia, ib)
		case oka:
			return -1
		case okb:
			return 1
		}
		return cmp.Compare(a, b)
	})

	sum := Summary{Total: len(anns)}
	for _, id := range ids {
		s := groups[id]
		sum.Classes = append(sum.Classes, ClassStats{
			ClassID:    id,
			Name:       classes.Resolve(id).Name,
			Count:      len(s.w),
			Width:      measure(s.w),
			Height:     measure(s.h),
			Area:       measure(s.area),
			Confidence: stat.Mean(s.conf, nil),
		})
	}
	return sum
}

func measure(xs []float64) Measure {
	if len(xs) == 0 {
		return Measure{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Measure{Mean: mean, StdDev: std}
}

// MeanIoU is the average pairwise overlap ratio between boxes of the same
// class, a rough duplicate indicator. It is zero when no class has two boxes.
func MeanIoU(anns []annotation.Annotation) float64 {
	var ratios []float64
	for i := range anns {
		for j := i + 1; j < len(anns); j++ {
			if anns[i].ClassID == anns[j].ClassID {
				ratios = append(ratios, geometry.OverlapRatio(anns[i].Rect(), anns[j].Rect()))
			}
		}
	}
	if len(ratios) == 0 {
		return 0
	}
	return stat.Mean(ratios, nil)
}
