package grid

import (
	"math"

	"github.com/justyntemme/mosaic/internal/debug"
)

// Params are the geometry inputs for one layout pass. All values are in
// pixels. Layout normalizes degenerate values instead of failing.
type Params struct {
	AvailableWidth   float64
	IdealColumnWidth float64
	Spacing          float64
	TopInset         float64
	BottomInset      float64
	SideInset        float64
	LabelHeight      float64 // 0 disables label reservation
	TileHeight       float64 // fixed tile height for folder-like items
}

func (p Params) normalized() Params {
	if p.IdealColumnWidth < 1 {
		p.IdealColumnWidth = 1
	}
	if p.Spacing < 0 {
		p.Spacing = 0
	}
	if p.TopInset < 0 {
		p.TopInset = 0
	}
	if p.BottomInset < 0 {
		p.BottomInset = 0
	}
	if p.SideInset < 0 {
		p.SideInset = 0
	}
	if p.LabelHeight < 0 {
		p.LabelHeight = 0
	}
	if p.TileHeight < 1 {
		p.TileHeight = 1
	}
	return p
}

// Record is the derived placement of a single item. Records are never
// mutated; a new layout pass produces a fresh set.
type Record struct {
	Column        int
	IndexInColumn int
	ListIndex     int
	X             float64
	Y             float64
	Height        float64
}

// Positions is the result of one layout pass: a pure function of the item
// list and Params at the time of the call.
type Positions struct {
	ColumnCount   int
	ColumnWidth   float64
	ContentHeight float64

	records map[string]Record
	columns [][]string // item IDs per column, top to bottom
}

// Record returns the placement for an item ID.
func (p *Positions) Record(id string) (Record, bool) {
	r, ok := p.records[id]
	return r, ok
}

// Column returns the ordered item IDs assigned to one column.
func (p *Positions) Column(i int) []string {
	if i < 0 || i >= len(p.columns) {
		return nil
	}
	return p.columns[i]
}

// Len returns the number of placed items.
func (p *Positions) Len() int { return len(p.records) }

// ItemsIn returns the IDs of all items whose frame intersects the vertical
// band [top, bottom]. Columns are scanned with a binary search on the sorted
// Y offsets, so the cost is proportional to the matching items.
func (p *Positions) ItemsIn(top, bottom float64) []string {
	if bottom < top {
		top, bottom = bottom, top
	}
	var out []string
	for _, col := range p.columns {
		// First item whose bottom edge reaches the band.
		lo, hi := 0, len(col)
		for lo < hi {
			mid := (lo + hi) / 2
			r := p.records[col[mid]]
			if r.Y+r.Height < top {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		for i := lo; i < len(col); i++ {
			r := p.records[col[i]]
			if r.Y > bottom {
				break
			}
			out = append(out, col[i])
		}
	}
	return out
}

// ColumnCountFor derives how many columns tile the available width:
// max(1, floor((availableWidth + spacing) / (idealWidth + spacing))).
func ColumnCountFor(availableWidth, idealWidth, spacing float64) int {
	if availableWidth < 1 {
		return 1
	}
	n := int(math.Floor((availableWidth + spacing) / (idealWidth + spacing)))
	if n < 1 {
		n = 1
	}
	return n
}

// HeightFor derives the tile height of one item at the given column width.
func HeightFor(it Item, columnWidth float64, p Params) float64 {
	if it.Kind == KindPreviewable {
		return columnWidth/it.EffectiveAspect() + p.LabelHeight
	}
	return p.TileHeight + p.LabelHeight
}

// Layout packs the items into balanced columns. Each item is appended to the
// currently shortest column, ties broken by the lowest column index so the
// result is deterministic. Column width is the exact division of the
// remaining width so the columns always tile with no fractional gap.
func Layout(items []Item, p Params) *Positions {
	p = p.normalized()

	inner := p.AvailableWidth - 2*p.SideInset
	n := ColumnCountFor(inner, p.IdealColumnWidth, p.Spacing)
	colWidth := (inner - float64(n-1)*p.Spacing) / float64(n)
	if colWidth < 1 {
		colWidth = 1
	}

	pos := &Positions{
		ColumnCount: n,
		ColumnWidth: colWidth,
		records:     make(map[string]Record, len(items)),
		columns:     make([][]string, n),
	}

	if len(items) == 0 {
		pos.ContentHeight = p.TopInset + p.BottomInset
		return pos
	}

	heights := make([]float64, n)
	for i := range heights {
		heights[i] = p.TopInset
	}

	for i, it := range items {
		col := 0
		for c := 1; c < n; c++ {
			if heights[c] < heights[col] {
				col = c
			}
		}

		h := HeightFor(it, colWidth, p)
		rec := Record{
			Column:        col,
			IndexInColumn: len(pos.columns[col]),
			ListIndex:     i,
			X:             p.SideInset + float64(col)*(colWidth+p.Spacing),
			Y:             heights[col],
			Height:        h,
		}
		pos.records[it.ID] = rec
		pos.columns[col] = append(pos.columns[col], it.ID)
		heights[col] += h + p.Spacing

		debug.Log(debug.GRID_PLACE, "place %s col=%d y=%.1f h=%.1f", it.ID, col, rec.Y, h)
	}

	maxH := heights[0]
	for _, h := range heights[1:] {
		if h > maxH {
			maxH = h
		}
	}
	pos.ContentHeight = maxH - p.Spacing + p.BottomInset

	debug.Log(debug.GRID, "layout: %d items, %d cols, colWidth=%.1f, contentHeight=%.1f",
		len(items), n, colWidth, pos.ContentHeight)
	return pos
}
