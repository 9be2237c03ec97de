package ui

import (
	"image"
	"image/color"

	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

// drawFolderGlyph paints a flat folder shape filling a w x h tile.
func drawFolderGlyph(ops *op.Ops, w, h int) {
	s := float32(min(w, h))
	offX := (w - int(s)) / 2
	offY := (h - int(s)) / 2

	bodyX := offX + int(s*0.16)
	bodyY := offY + int(s*0.32)
	bodyW := int(s * 0.68)
	bodyH := int(s * 0.46)

	lightBlue := color.NRGBA{R: 210, G: 228, B: 252, A: 255}
	paint.FillShape(ops, lightBlue, clip.Rect{
		Min: image.Pt(bodyX, bodyY),
		Max: image.Pt(bodyX+bodyW, bodyY+bodyH),
	}.Op())

	border := 2
	for _, edge := range []clip.Rect{
		{Min: image.Pt(bodyX, bodyY), Max: image.Pt(bodyX+bodyW, bodyY+border)},
		{Min: image.Pt(bodyX, bodyY+bodyH-border), Max: image.Pt(bodyX+bodyW, bodyY+bodyH)},
		{Min: image.Pt(bodyX, bodyY), Max: image.Pt(bodyX+border, bodyY+bodyH)},
		{Min: image.Pt(bodyX+bodyW-border, bodyY), Max: image.Pt(bodyX+bodyW, bodyY+bodyH)},
	} {
		paint.FillShape(ops, colDirBlue, edge.Op())
	}

	// Tab across the top edge
	tabW := int(s * 0.28)
	tabH := int(s * 0.10)
	paint.FillShape(ops, colDirBlue, clip.Rect{
		Min: image.Pt(bodyX, bodyY-tabH),
		Max: image.Pt(bodyX+tabW, bodyY+border),
	}.Op())
}

// drawFileGlyph paints a flat document shape, used for entries that have
// no thumbnail.
func drawFileGlyph(ops *op.Ops, w, h int) {
	s := float32(min(w, h))
	offX := (w - int(s)) / 2
	offY := (h - int(s)) / 2

	fileX := offX + int(s*0.28)
	fileY := offY + int(s*0.14)
	fileW := int(s * 0.44)
	fileH := int(s * 0.66)

	lightAccent := color.NRGBA{R: 227, G: 242, B: 253, A: 255}
	paint.FillShape(ops, lightAccent, clip.Rect{
		Min: image.Pt(fileX, fileY),
		Max: image.Pt(fileX+fileW, fileY+fileH),
	}.Op())

	border := 2
	for _, edge := range []clip.Rect{
		{Min: image.Pt(fileX, fileY), Max: image.Pt(fileX+fileW, fileY+border)},
		{Min: image.Pt(fileX, fileY+fileH-border), Max: image.Pt(fileX+fileW, fileY+fileH)},
		{Min: image.Pt(fileX, fileY), Max: image.Pt(fileX+border, fileY+fileH)},
		{Min: image.Pt(fileX+fileW-border, fileY), Max: image.Pt(fileX+fileW, fileY+fileH)},
	} {
		paint.FillShape(ops, colAccent, edge.Op())
	}

	// Folded corner
	corner := int(s * 0.10)
	paint.FillShape(ops, colAccent, clip.Rect{
		Min: image.Pt(fileX+fileW-corner, fileY),
		Max: image.Pt(fileX+fileW, fileY+corner),
	}.Op())
}
