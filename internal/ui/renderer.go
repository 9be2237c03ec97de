package ui

import (
	"fmt"
	"image"
	"time"

	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/dustin/go-humanize"

	"github.com/justyntemme/mosaic/internal/grid"
)

// Renderer draws the application each frame and reports user intentions
// as UIEvents. It holds view-only state (scroll offset, image op cache);
// everything the user sees comes from the State passed to Frame.
type Renderer struct {
	Theme *material.Theme

	// Thumbs supplies tile bitmaps; TargetPx and LabelHeight are set by
	// the application whenever the layout geometry changes.
	Thumbs      ThumbSource
	TargetPx    int
	LabelHeight int

	scroll   float64
	gridSize image.Point
	gridTag  struct{}
	keyTag   struct{}
	focused  bool

	lastClickID   string
	lastClickTime time.Time

	imageOps     map[image.Image]paint.ImageOp
	imageOpLimit int
}

func NewRenderer() *Renderer {
	return &Renderer{
		Theme:        material.NewTheme(),
		imageOps:     make(map[image.Image]paint.ImageOp),
		imageOpLimit: 1024,
	}
}

// Frame lays out one frame and returns at most one user event.
func (r *Renderer) Frame(gtx layout.Context, state *State) UIEvent {
	var eventOut UIEvent

	if !r.focused {
		gtx.Execute(key.FocusCmd{Tag: &r.keyTag})
		r.focused = true
	}
	event.Op(gtx.Ops, &r.keyTag)
	r.processKeys(gtx, state, &eventOut)

	layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return r.layoutMasonry(gtx, state, &eventOut)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return r.layoutStatusBar(gtx, state)
		}),
	)

	return eventOut
}

func (r *Renderer) processKeys(gtx layout.Context, state *State, eventOut *UIEvent) {
	for {
		ev, ok := gtx.Event(
			key.Filter{Focus: &r.keyTag, Name: key.NameUpArrow},
			key.Filter{Focus: &r.keyTag, Name: key.NameDownArrow},
			key.Filter{Focus: &r.keyTag, Name: key.NameLeftArrow},
			key.Filter{Focus: &r.keyTag, Name: key.NameRightArrow},
			key.Filter{Focus: &r.keyTag, Name: key.NameTab, Optional: key.ModShift},
			key.Filter{Focus: &r.keyTag, Name: key.NameReturn},
			key.Filter{Focus: &r.keyTag, Name: key.NameEnter},
			key.Filter{Focus: &r.keyTag, Name: key.NameSpace},
			key.Filter{Focus: &r.keyTag, Name: key.NameEscape},
			key.Filter{Focus: &r.keyTag, Name: key.NameDeleteBackward},
			key.Filter{Focus: &r.keyTag, Name: "H", Required: key.ModCtrl},
			key.Filter{Focus: &r.keyTag, Name: "=", Required: key.ModCtrl},
			key.Filter{Focus: &r.keyTag, Name: "-", Required: key.ModCtrl},
		)
		if !ok {
			break
		}
		k, ok := ev.(key.Event)
		if !ok || k.State != key.Press {
			continue
		}
		switch k.Name {
		case key.NameUpArrow:
			*eventOut = UIEvent{Action: ActionMove, Dir: grid.DirUp}
		case key.NameDownArrow:
			*eventOut = UIEvent{Action: ActionMove, Dir: grid.DirDown}
		case key.NameLeftArrow:
			*eventOut = UIEvent{Action: ActionMove, Dir: grid.DirLeft}
		case key.NameRightArrow:
			*eventOut = UIEvent{Action: ActionMove, Dir: grid.DirRight}
		case key.NameTab:
			if k.Modifiers.Contain(key.ModShift) {
				*eventOut = UIEvent{Action: ActionMove, Dir: grid.DirPrev}
			} else {
				*eventOut = UIEvent{Action: ActionMove, Dir: grid.DirNext}
			}
		case key.NameReturn, key.NameEnter:
			if state.FocusedID != "" {
				*eventOut = UIEvent{Action: ActionActivate, ID: state.FocusedID}
			}
		case key.NameSpace:
			if state.FocusedID != "" {
				*eventOut = UIEvent{Action: ActionToggleSelect, ID: state.FocusedID}
			}
		case key.NameEscape:
			*eventOut = UIEvent{Action: ActionClearSelection}
		case key.NameDeleteBackward:
			if state.CanBack {
				*eventOut = UIEvent{Action: ActionBack}
			}
		case "H":
			*eventOut = UIEvent{Action: ActionToggleDotfiles}
		case "=":
			*eventOut = UIEvent{Action: ActionQualityUp}
		case "-":
			*eventOut = UIEvent{Action: ActionQualityDown}
		}
	}
}

func (r *Renderer) layoutStatusBar(gtx layout.Context, state *State) layout.Dimensions {
	barHeight := gtx.Dp(unit.Dp(26))
	gtx.Constraints.Min.Y = barHeight
	gtx.Constraints.Max.Y = barHeight

	paint.FillShape(gtx.Ops, colStatusBg, clip.Rect{
		Max: image.Pt(gtx.Constraints.Max.X, barHeight),
	}.Op())

	left := state.CurrentPath
	if state.LibraryMode {
		left = "Library: " + state.CurrentPath
		if state.ScanActive {
			left += " (scanning...)"
		}
	}
	if state.StatusErr != "" {
		left = state.StatusErr
	}

	right := statusSummary(state)

	layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8), Top: unit.Dp(4)}.Layout(gtx,
		func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Horizontal, Spacing: layout.SpaceBetween}.Layout(gtx,
				layout.Flexed(0.6, func(gtx layout.Context) layout.Dimensions {
					lbl := material.Body2(r.Theme, left)
					lbl.MaxLines = 1
					if state.StatusErr != "" {
						lbl.Color = colDanger
					} else {
						lbl.Color = colBlack
					}
					return lbl.Layout(gtx)
				}),
				layout.Flexed(0.4, func(gtx layout.Context) layout.Dimensions {
					lbl := material.Body2(r.Theme, right)
					lbl.MaxLines = 1
					lbl.Color = colGray
					lbl.Alignment = text.End
					return lbl.Layout(gtx)
				}),
			)
		})

	return layout.Dimensions{Size: image.Pt(gtx.Constraints.Max.X, barHeight)}
}

func statusSummary(state *State) string {
	var total uint64
	for i := range state.Items {
		if state.Items[i].Kind == grid.KindPreviewable {
			total += uint64(state.Items[i].Size)
		}
	}
	s := fmt.Sprintf("%d items", len(state.Items))
	if total > 0 {
		s += " · " + humanize.Bytes(total)
	}
	if state.Selection != nil && state.Selection.Len() > 1 {
		s += fmt.Sprintf(" · %d selected", state.Selection.Len())
	}
	return s
}

// Scroll returns the current scroll offset in content coordinates.
func (r *Renderer) Scroll() float64 { return r.scroll }

// ViewportHeight returns the grid viewport height in pixels.
func (r *Renderer) ViewportHeight() float64 { return float64(r.gridSize.Y) }

// GridWidth returns the grid viewport width in pixels.
func (r *Renderer) GridWidth() float64 { return float64(r.gridSize.X) }

// ResetScroll jumps back to the top, used when the item list is replaced.
func (r *Renderer) ResetScroll() { r.scroll = 0 }

// EnsureVisible scrolls the minimum distance needed to bring a tile fully
// into view.
func (r *Renderer) EnsureVisible(rec grid.Record) {
	vh := float64(r.gridSize.Y)
	if vh <= 0 {
		return
	}
	if rec.Y < r.scroll {
		r.scroll = rec.Y
	} else if rec.Y+rec.Height > r.scroll+vh {
		r.scroll = rec.Y + rec.Height - vh
	}
}
