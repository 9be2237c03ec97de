package thumb

import (
	"image"
	"image/color"
	"sync"
)

// Fallback bitmaps substitute for sources that failed to decode so a grid
// cell is never left empty. One square per bucket, built lazily and shared.
var (
	fallbackMu sync.Mutex
	fallbacks  = make(map[int]image.Image)
)

// Fallback returns the generic placeholder bitmap for a bucket.
func Fallback(bucket int) image.Image {
	if bucket < 8 {
		bucket = 8
	}

	fallbackMu.Lock()
	defer fallbackMu.Unlock()

	if img, ok := fallbacks[bucket]; ok {
		return img
	}

	fill := color.NRGBA{R: 225, G: 228, B: 232, A: 255}
	border := color.NRGBA{R: 180, G: 186, B: 194, A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, bucket, bucket))
	for y := 0; y < bucket; y++ {
		for x := 0; x < bucket; x++ {
			if x < 2 || y < 2 || x >= bucket-2 || y >= bucket-2 {
				img.SetNRGBA(x, y, border)
			} else {
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	fallbacks[bucket] = img
	return img
}
