package ui

import (
	"image"

	"github.com/justyntemme/mosaic/internal/grid"
)

type UIAction int

const (
	ActionNone UIAction = iota
	ActionBack
	ActionSelect
	ActionToggleSelect
	ActionClearSelection
	ActionMove
	ActionActivate
	ActionToggleDotfiles
	ActionQualityUp
	ActionQualityDown
)

// UIEvent carries one user intention out of a frame. The renderer never
// mutates application state itself.
type UIEvent struct {
	Action UIAction
	ID     string
	Dir    grid.Direction
}

// ThumbSource hands out the best currently available bitmap for an item.
// A false second return means a better version is still being produced.
type ThumbSource interface {
	Request(locator string, targetPx int) (image.Image, bool)
}

// State is the view model rendered each frame. The application owns it;
// the renderer only reads.
type State struct {
	CurrentPath string
	Items       []grid.Item
	Positions   *grid.Positions
	Selection   *grid.Selection
	FocusedID   string
	CanBack     bool
	LibraryMode bool
	ScanActive  bool
	StatusErr   string

	index map[string]int
}

// Reindex rebuilds the id lookup. Call after replacing Items.
func (s *State) Reindex() {
	s.index = make(map[string]int, len(s.Items))
	for i := range s.Items {
		s.index[s.Items[i].ID] = i
	}
}

// Item returns the item with the given id, or nil.
func (s *State) Item(id string) *grid.Item {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return &s.Items[i]
}
