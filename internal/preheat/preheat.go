// Package preheat keeps a rolling window of near-viewport items warm in the
// thumbnail pipeline. On every applied scroll step it diffs the previous and
// current preheat bands, resolves the changed strips to concrete items via
// the layout, and issues start/stop prefetch calls for exactly those items.
package preheat

import (
	"github.com/justyntemme/mosaic/internal/debug"
)

// Band is a vertical extent in content coordinates. The preheat window spans
// the full grid width, so one dimension is enough.
type Band struct {
	Top    float64
	Bottom float64
}

// Empty reports whether the band covers nothing.
func (b Band) Empty() bool { return b.Bottom <= b.Top }

// Intersects reports whether two bands overlap.
func (b Band) Intersects(o Band) bool {
	return !b.Empty() && !o.Empty() && b.Top < o.Bottom && o.Top < b.Bottom
}

// Diff computes the strips newly covered by next and the strips of prev no
// longer covered. Disjoint bands swap wholesale; overlapping bands produce
// up to two added and two removed strips.
func Diff(prev, next Band) (added, removed []Band) {
	if prev.Empty() {
		if !next.Empty() {
			added = append(added, next)
		}
		return added, removed
	}
	if !prev.Intersects(next) {
		if !next.Empty() {
			added = append(added, next)
		}
		removed = append(removed, prev)
		return added, removed
	}

	if next.Bottom > prev.Bottom {
		added = append(added, Band{Top: prev.Bottom, Bottom: next.Bottom})
	}
	if next.Top < prev.Top {
		added = append(added, Band{Top: next.Top, Bottom: prev.Top})
	}
	if prev.Bottom > next.Bottom {
		removed = append(removed, Band{Top: next.Bottom, Bottom: prev.Bottom})
	}
	if prev.Top < next.Top {
		removed = append(removed, Band{Top: prev.Top, Bottom: next.Top})
	}
	return added, removed
}

// Target receives the prefetch calls computed by the controller.
type Target interface {
	StartPrefetch(ids []string)
	StopPrefetch(ids []string)
}

// Resolver maps a content band to the items whose frames intersect it.
type Resolver func(top, bottom float64) []string

// Controller tracks one preheat window. It keeps only the previously applied
// band, no deeper history, and applies each transition's start/stop pair
// atomically from a single consistent before/after snapshot.
//
// Margin expands the visible region by a fraction of the viewport height on
// each side. Hysteresis suppresses updates whose vertical movement since the
// last applied band is below a fraction of the viewport height, bounding
// recomputation during continuous scrolling.
type Controller struct {
	Margin     float64
	Hysteresis float64

	resolve Resolver
	target  Target

	prev    Band
	hasPrev bool
}

// NewController wires a controller to a layout resolver and prefetch target.
func NewController(resolve Resolver, target Target, margin, hysteresis float64) *Controller {
	if margin < 0 {
		margin = 0
	}
	if hysteresis < 0 {
		hysteresis = 0
	}
	return &Controller{
		Margin:     margin,
		Hysteresis: hysteresis,
		resolve:    resolve,
		target:     target,
	}
}

// Reset forgets the previous band. Call when the item list or layout is
// replaced; the next viewport update warms the whole new window.
func (c *Controller) Reset() {
	c.prev = Band{}
	c.hasPrev = false
}

// ViewportChanged applies a scroll/resize step. scrollTop and viewportHeight
// describe the visible region; contentHeight clamps the preheat band.
func (c *Controller) ViewportChanged(scrollTop, viewportHeight, contentHeight float64) {
	if viewportHeight <= 0 || contentHeight <= 0 {
		return
	}

	margin := c.Margin * viewportHeight
	next := Band{Top: scrollTop - margin, Bottom: scrollTop + viewportHeight + margin}
	if next.Top < 0 {
		next.Top = 0
	}
	if next.Bottom > contentHeight {
		next.Bottom = contentHeight
	}
	if next.Empty() {
		return
	}

	if c.hasPrev {
		move := next.Top - c.prev.Top
		if move < 0 {
			move = -move
		}
		if move < c.Hysteresis*viewportHeight {
			return
		}
	}

	prev := c.prev
	if !c.hasPrev {
		prev = Band{}
	}
	added, removed := Diff(prev, next)

	var startIDs []string
	seen := make(map[string]bool)
	for _, band := range added {
		for _, id := range c.resolve(band.Top, band.Bottom) {
			if !seen[id] {
				seen[id] = true
				startIDs = append(startIDs, id)
			}
		}
	}

	var stopIDs []string
	if len(removed) > 0 {
		// An item straddling the window edge intersects a removed strip
		// and the new band at once; it stays warm.
		wanted := make(map[string]bool)
		for _, id := range c.resolve(next.Top, next.Bottom) {
			wanted[id] = true
		}
		stopped := make(map[string]bool)
		for _, band := range removed {
			for _, id := range c.resolve(band.Top, band.Bottom) {
				if stopped[id] || wanted[id] {
					continue
				}
				stopped[id] = true
				stopIDs = append(stopIDs, id)
			}
		}
	}

	if len(stopIDs) > 0 {
		c.target.StopPrefetch(stopIDs)
	}
	if len(startIDs) > 0 {
		c.target.StartPrefetch(startIDs)
	}

	debug.Log(debug.PREHEAT, "band [%.0f,%.0f] -> [%.0f,%.0f]: +%d -%d items",
		prev.Top, prev.Bottom, next.Top, next.Bottom, len(startIDs), len(stopIDs))

	c.prev = next
	c.hasPrev = true
}
