package thumb

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Decoder produces a bitmap for a source locator, already scaled to fit the
// target pixel size. Implementations may block; the pipeline only calls them
// from worker goroutines and passes a context that is cancelled when the
// request is stopped or the list is invalidated.
type Decoder interface {
	Decode(ctx context.Context, locator string, targetPx int) (image.Image, error)
}

// FileDecoder decodes image files from the local filesystem. HEIC/HEIF is
// handled where platform support exists; everything else goes through the
// registered stdlib decoders.
type FileDecoder struct{}

func (FileDecoder) Decode(ctx context.Context, locator string, targetPx int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(locator)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	ext := strings.ToLower(filepath.Ext(locator))
	if ext == ".heic" || ext == ".heif" {
		if !heicSupported() {
			return nil, image.ErrFormat
		}
		img, err = decodeHEIC(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return scaleToFit(img, targetPx), nil
}

// scaleToFit scales src down so its larger dimension is targetPx. Images
// already small enough are returned as-is.
func scaleToFit(src image.Image, targetPx int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= targetPx && height <= targetPx {
		return src
	}

	var scale float64
	if width > height {
		scale = float64(targetPx) / float64(width)
	} else {
		scale = float64(targetPx) / float64(height)
	}
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}

// aspectOf returns the width/height ratio of a bitmap, or 0 for a
// degenerate one.
func aspectOf(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Dy() == 0 {
		return 0
	}
	return float64(b.Dx()) / float64(b.Dy())
}
