package grid

import (
	"math"

	"github.com/justyntemme/mosaic/internal/debug"
)

// Direction is a navigation command issued against the current layout.
type Direction int

const (
	DirPrev  Direction = iota // previous item in list order
	DirNext                   // next item in list order
	DirUp                     // previous item within the same column
	DirDown                   // next item within the same column
	DirLeft                   // nearest item one column to the left
	DirRight                  // nearest item one column to the right
)

// Move translates a directional command into an item lookup against the
// current positions. It returns the ID of the item that should be selected
// and whether the selection changed. With no current selection the first
// item in list order is selected regardless of direction.
func Move(items []Item, pos *Positions, currentID string, dir Direction) (string, bool) {
	if len(items) == 0 || pos == nil {
		return currentID, false
	}

	cur, ok := pos.Record(currentID)
	if !ok {
		// Nothing selected yet: any navigation command selects the first item.
		return items[0].ID, items[0].ID != currentID
	}

	switch dir {
	case DirPrev, DirNext:
		idx := cur.ListIndex
		if dir == DirPrev {
			idx--
		} else {
			idx++
		}
		if idx < 0 {
			idx = 0
		}
		if idx > len(items)-1 {
			idx = len(items) - 1
		}
		id := items[idx].ID
		return id, id != currentID

	case DirUp, DirDown:
		col := pos.Column(cur.Column)
		idx := cur.IndexInColumn
		if dir == DirUp {
			idx--
		} else {
			idx++
		}
		if idx < 0 || idx >= len(col) {
			return currentID, false
		}
		return col[idx], true

	case DirLeft, DirRight:
		target := cur.Column - 1
		if dir == DirRight {
			target = cur.Column + 1
		}
		col := pos.Column(target)
		if len(col) == 0 {
			return currentID, false
		}
		// Pick the item whose vertical center is nearest to ours,
		// ties broken by first occurrence.
		center := cur.Y + cur.Height/2
		best := col[0]
		bestDist := math.Inf(1)
		for _, id := range col {
			r, _ := pos.Record(id)
			d := math.Abs(r.Y + r.Height/2 - center)
			if d < bestDist {
				best = id
				bestDist = d
			}
		}
		debug.Log(debug.NAV, "move %v: %s -> %s (dist %.1f)", dir, currentID, best, bestDist)
		return best, true
	}

	return currentID, false
}
