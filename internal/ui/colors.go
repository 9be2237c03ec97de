package ui

import "image/color"

// Theme colors - these are variables so they can be modified for dark mode
var (
	colWhite    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	colBlack    = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	colGray     = color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	colCanvas   = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	colTileBg   = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	colSelected = color.NRGBA{R: 200, G: 220, B: 255, A: 255}
	colAccent   = color.NRGBA{R: 66, G: 133, B: 244, A: 255}
	colDirBlue  = color.NRGBA{R: 0, G: 0, B: 128, A: 255}
	colStatusBg = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	colDanger   = color.NRGBA{R: 220, G: 53, B: 69, A: 255}
)
