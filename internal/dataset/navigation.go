package dataset

// Step moves delta images from i, clamped to the list.
func (d *Dataset) Step(i, delta int) int {
	if len(d.images) == 0 {
		return 0
	}
	return max(0, min(len(d.images)-1, i+delta))
}

func (d *Dataset) First() int { return 0 }

func (d *Dataset) Last() int { return max(0, len(d.images)-1) }

// NextUnannotated searches from i in direction dir (+1 or -1) for the nearest
// image annotated reports false. The search does not wrap.
func (d *Dataset) NextUnannotated(i, dir int, annotated func(id string) bool) (int, bool) {
	if dir == 0 {
		return i, false
	}
	if dir > 0 {
		dir = 1
	} else {
		dir = -1
	}
	for j := i + dir; j >= 0 && j < len(d.images); j += dir {
		if !annotated(d.images[j].ID) {
			return j, true
		}
	}
	return i, false
}

// Neighbors returns the ids of up to n images on each side of i, nearest
// first, for prefetching.
func (d *Dataset) Neighbors(i, n int) []string {
	var ids []string
	for k := 1; k <= n; k++ {
		if j := i + k; j < len(d.images) {
			ids = append(ids, d.images[j].ID)
		}
		if j := i - k; j >= 0 {
			ids = append(ids, d.images[j].ID)
		}
	}
	return ids
}

// CellState is the state of one dataset overview cell.
type CellState int

const (
	CellEmpty CellState = iota
	CellAnnotated
	CellCurrent
)

// Overview reports a state per image for the dataset overview grid.
func (d *Dataset) Overview(current int, annotated func(id string) bool) []CellState {
	cells := make([]CellState, len(d.images))
	for i, img := range d.images {
		switch {
		case i == current:
			cells[i] = CellCurrent
		case annotated(img.ID):
			cells[i] = CellAnnotated
		}
	}
	return cells
}

// Progress returns how many images are annotated.
func (d *Dataset) Progress(annotated func(id string) bool) int {
	n := 0
	for _, img := range d.images {
		if annotated(img.ID) {
			n++
		}
	}
	return n
}
