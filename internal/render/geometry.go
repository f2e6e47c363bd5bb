package render

import (
	"image"
	"math"
)

// Rect is a rectangle in fractional pixels.
type Rect struct {
	X, Y, W, H float64
}

// Inset shrinks r by d on all four sides.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return !(r.W > 0) || !(r.H > 0)
}

// Pixels rounds r's edges to the pixel grid.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}

// FitCrop returns the centered region of a srcW×srcH source whose aspect
// ratio equals dstW/dstH. A source wider than the destination keeps its
// full height and loses width on both sides; otherwise it keeps its full
// width and loses height. The result never exceeds the source.
func FitCrop(srcW, srcH, dstW, dstH float64) Rect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Rect{}
	}
	srcAR := srcW / srcH
	dstAR := dstW / dstH

	if srcAR > dstAR {
		w := srcH * dstAR
		return Rect{X: (srcW - w) / 2, Y: 0, W: w, H: srcH}
	}
	h := srcW / dstAR
	return Rect{X: 0, Y: (srcH - h) / 2, W: srcW, H: h}
}

// LineTop returns the top of line i of a text block at y.
func LineTop(y float64, i, size int) float64 {
	return y + float64(i)*LineHeight(size)
}

// LineHeight is the distance between consecutive lines of a text block.
func LineHeight(size int) float64 {
	return float64(size) * 1.2
}
