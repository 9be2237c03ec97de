// Package grid implements the masonry layout engine: greedy shortest-column
// packing of a dynamically sized item list, plus directional navigation and
// selection bookkeeping over the resulting geometry. Everything here is pure
// computation; rendering, decoding and scrolling live elsewhere.
package grid

import "time"

// Kind classifies how an item's tile height is derived.
type Kind int

const (
	// KindFolder items render as a fixed short tile.
	KindFolder Kind = iota
	// KindPreviewable items derive their height from the thumbnail
	// aspect ratio once one has been decoded.
	KindPreviewable
)

// DefaultAspect is the neutral width/height ratio assumed for previewable
// items until a decoded bitmap refines it.
const DefaultAspect = 4.0 / 3.0

// Item is one entry in the grid. The ID is stable for the lifetime of the
// item list; replacing the list (navigation, rescan) replaces all items.
type Item struct {
	ID      string // stable identity within the current list
	Locator string // source path, used as the decoder/cache key
	Name    string
	Kind    Kind
	Aspect  float64 // width/height; <= 0 means not yet known
	Size    int64
	ModTime time.Time
}

// EffectiveAspect returns the ratio used for height derivation.
func (it Item) EffectiveAspect() float64 {
	if it.Aspect > 0 {
		return it.Aspect
	}
	return DefaultAspect
}
