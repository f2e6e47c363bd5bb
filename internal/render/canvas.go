package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// TextStyle describes one text run.
type TextStyle struct {
	Size   int
	Bold   bool
	Italic bool
	Color  color.Color
}

// Canvas is the drawing surface the compositor needs. Coordinates are
// destination pixels.
type Canvas interface {
	Bounds() image.Rectangle
	// DrawImage scales the sr region of src to exactly fill dr.
	DrawImage(src image.Image, sr, dr image.Rectangle)
	FillRect(r image.Rectangle, c color.Color)
	// DrawText draws a single line with the top of its ascent at y.
	DrawText(text string, x, y int, style TextStyle) error
}

// RasterCanvas implements Canvas over an *image.RGBA.
type RasterCanvas struct {
	img    *image.RGBA
	scaler draw.Scaler
	fonts  *FontCache
}

// NewRasterCanvas allocates a transparent w×h surface.
func NewRasterCanvas(w, h int, scaler draw.Scaler, fonts *FontCache) *RasterCanvas {
	if scaler == nil {
		scaler = draw.CatmullRom
	}
	if fonts == nil {
		fonts = NewFontCache()
	}
	return &RasterCanvas{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		scaler: scaler,
		fonts:  fonts,
	}
}

// Image returns the underlying surface.
func (c *RasterCanvas) Image() *image.RGBA { return c.img }

func (c *RasterCanvas) Bounds() image.Rectangle { return c.img.Bounds() }

func (c *RasterCanvas) DrawImage(src image.Image, sr, dr image.Rectangle) {
	sr = sr.Intersect(src.Bounds())
	if sr.Empty() || dr.Empty() {
		return
	}
	if sr.Size() == dr.Size() {
		draw.Draw(c.img, dr, src, sr.Min, draw.Over)
		return
	}
	c.scaler.Scale(c.img, dr, src, sr, draw.Over, nil)
}

func (c *RasterCanvas) FillRect(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *RasterCanvas) DrawText(text string, x, y int, style TextStyle) error {
	if text == "" || style.Size <= 0 {
		return nil
	}
	face, err := c.fonts.Face(style.Size, style.Bold, style.Italic)
	if err != nil {
		return err
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(style.Color),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
	return nil
}

// Scaler returns the interpolator named by kind. Unknown names fall back
// to Catmull-Rom.
func Scaler(kind string) draw.Scaler {
	switch kind {
	case "nearest":
		return draw.NearestNeighbor
	case "approxbilinear":
		return draw.ApproxBiLinear
	case "bilinear":
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}
