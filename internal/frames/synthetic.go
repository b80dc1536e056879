package frames

import (
	"image"
	"image/color"
)

// Solid returns a w×h frame filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// Gradient returns a w×h frame whose pixels vary with position and seed, so
// that consecutive frames differ.
func Gradient(w, h, seed int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x*7 + seed*13) & 0xff),
				G: uint8((y*5 + seed*3) & 0xff),
				B: uint8((x + y + seed) & 0xff),
				A: 0xff,
			})
		}
	}
	return img
}
