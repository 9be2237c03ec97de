package ui

import (
	"image"
	"time"

	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/justyntemme/mosaic/internal/debug"
	"github.com/justyntemme/mosaic/internal/grid"
)

const doubleClickInterval = 400 * time.Millisecond

// layoutMasonry paints the packed grid. Items are placed at the absolute
// coordinates the layout computed; only the slice of the content that
// intersects the viewport is drawn.
func (r *Renderer) layoutMasonry(gtx layout.Context, state *State, eventOut *UIEvent) layout.Dimensions {
	size := gtx.Constraints.Max
	r.gridSize = size

	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	paint.FillShape(gtx.Ops, colCanvas, clip.Rect{Max: size}.Op())
	event.Op(gtx.Ops, &r.gridTag)

	pos := state.Positions
	var contentHeight float64
	if pos != nil {
		contentHeight = pos.ContentHeight
	}

	r.processPointer(gtx, state, contentHeight, eventOut)
	r.clampScroll(contentHeight, float64(size.Y))

	if pos == nil || pos.Len() == 0 {
		return layout.Dimensions{Size: size}
	}

	top := r.scroll
	bottom := top + float64(size.Y)
	visible := pos.ItemsIn(top, bottom)
	debug.Log(debug.GRID, "draw: %d of %d items, scroll=%.0f", len(visible), pos.Len(), r.scroll)

	for _, id := range visible {
		item := state.Item(id)
		if item == nil {
			continue
		}
		rec, ok := pos.Record(id)
		if !ok {
			continue
		}
		r.drawTile(gtx, state, item, rec, pos.ColumnWidth)
	}

	return layout.Dimensions{Size: size}
}

func (r *Renderer) processPointer(gtx layout.Context, state *State, contentHeight float64, eventOut *UIEvent) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  &r.gridTag,
			Kinds:   pointer.Press | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -1_000_000, Max: 1_000_000},
		})
		if !ok {
			break
		}
		e, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch e.Kind {
		case pointer.Scroll:
			r.scroll += float64(e.Scroll.Y)
			r.clampScroll(contentHeight, float64(r.gridSize.Y))
			gtx.Execute(op.InvalidateCmd{})

		case pointer.Press:
			if !e.Buttons.Contain(pointer.ButtonPrimary) {
				continue
			}
			id := r.hitTest(state, float64(e.Position.X), float64(e.Position.Y)+r.scroll)
			gtx.Execute(key.FocusCmd{Tag: &r.keyTag})
			if id == "" {
				*eventOut = UIEvent{Action: ActionClearSelection}
				r.lastClickID = ""
				continue
			}
			now := time.Now()
			if e.Modifiers.Contain(key.ModCtrl) {
				*eventOut = UIEvent{Action: ActionToggleSelect, ID: id}
				r.lastClickID = ""
				continue
			}
			if id == r.lastClickID && now.Sub(r.lastClickTime) < doubleClickInterval {
				*eventOut = UIEvent{Action: ActionActivate, ID: id}
				r.lastClickID = ""
			} else {
				*eventOut = UIEvent{Action: ActionSelect, ID: id}
				r.lastClickID = id
				r.lastClickTime = now
			}
		}
	}
}

// hitTest maps a content coordinate to the item covering it, or "".
func (r *Renderer) hitTest(state *State, x, y float64) string {
	pos := state.Positions
	if pos == nil {
		return ""
	}
	for _, id := range pos.ItemsIn(y, y) {
		rec, ok := pos.Record(id)
		if !ok {
			continue
		}
		if x >= rec.X && x < rec.X+pos.ColumnWidth &&
			y >= rec.Y && y < rec.Y+rec.Height {
			return id
		}
	}
	return ""
}

func (r *Renderer) clampScroll(contentHeight, viewportHeight float64) {
	max := contentHeight - viewportHeight
	if max < 0 {
		max = 0
	}
	if r.scroll > max {
		r.scroll = max
	}
	if r.scroll < 0 {
		r.scroll = 0
	}
}

func (r *Renderer) drawTile(gtx layout.Context, state *State, item *grid.Item, rec grid.Record, colWidth float64) {
	x := int(rec.X)
	y := int(rec.Y - r.scroll)
	w := int(colWidth)
	h := int(rec.Height)
	labelH := r.LabelHeight
	if labelH > h {
		labelH = 0
	}
	imageH := h - labelH

	trans := op.Offset(image.Pt(x, y)).Push(gtx.Ops)

	selected := state.Selection != nil && state.Selection.Has(item.ID)
	if selected {
		paint.FillShape(gtx.Ops, colSelected, clip.RRect{
			Rect: image.Rect(-2, -2, w+2, h+2),
			NE:   4, NW: 4, SE: 4, SW: 4,
		}.Op(gtx.Ops))
	}

	switch item.Kind {
	case grid.KindPreviewable:
		r.drawThumb(gtx, item, w, imageH)
	default:
		paint.FillShape(gtx.Ops, colTileBg, clip.Rect{Max: image.Pt(w, imageH)}.Op())
		drawFolderGlyph(gtx.Ops, w, imageH)
	}

	if item.ID == state.FocusedID {
		border := 2
		for _, edge := range []clip.Rect{
			{Min: image.Pt(0, 0), Max: image.Pt(w, border)},
			{Min: image.Pt(0, imageH-border), Max: image.Pt(w, imageH)},
			{Min: image.Pt(0, 0), Max: image.Pt(border, imageH)},
			{Min: image.Pt(w-border, 0), Max: image.Pt(w, imageH)},
		} {
			paint.FillShape(gtx.Ops, colAccent, edge.Op())
		}
	}

	if labelH > 0 {
		labelTrans := op.Offset(image.Pt(2, imageH+2)).Push(gtx.Ops)
		lgtx := gtx
		lgtx.Constraints = layout.Exact(image.Pt(w-4, labelH-2))
		lbl := material.Body2(r.Theme, item.Name)
		lbl.MaxLines = 1
		lbl.Alignment = text.Middle
		if item.Kind == grid.KindFolder {
			lbl.Color = colBlack
		} else {
			lbl.Color = colGray
		}
		lbl.Layout(lgtx)
		labelTrans.Pop()
	}

	trans.Pop()
}

// drawThumb paints the best available bitmap for an image tile, or the
// flat placeholder while one is still being produced.
func (r *Renderer) drawThumb(gtx layout.Context, item *grid.Item, w, h int) {
	if w <= 0 || h <= 0 || r.Thumbs == nil {
		return
	}
	img, final := r.Thumbs.Request(item.Locator, r.TargetPx)
	if img == nil {
		paint.FillShape(gtx.Ops, colTileBg, clip.Rect{Max: image.Pt(w, h)}.Op())
		drawFileGlyph(gtx.Ops, w, h)
		if !final {
			gtx.Execute(op.InvalidateCmd{})
		}
		return
	}
	if !final {
		// A sharper version is on its way; keep painting the stale one.
		gtx.Execute(op.InvalidateCmd{})
	}

	imgOp, ok := r.imageOps[img]
	if !ok {
		if len(r.imageOps) > r.imageOpLimit {
			r.imageOps = make(map[image.Image]paint.ImageOp, r.imageOpLimit)
		}
		imgOp = paint.NewImageOp(img)
		r.imageOps[img] = imgOp
	}

	cgtx := gtx
	cgtx.Constraints = layout.Exact(image.Pt(w, h))
	widget.Image{
		Src:      imgOp,
		Fit:      widget.Cover,
		Position: layout.Center,
	}.Layout(cgtx)
}
