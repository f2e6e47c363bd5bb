// Package render composites credential images.
//
// A credential is drawn in a fixed order: the template, then every image
// field (frame, then the aspect-fit cropped photo), then every text field.
// Text therefore always sits above photos and frames always sit under them.
// The same inputs always produce the same pixels.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/JonMunkholm/credgen/internal/core"
	"golang.org/x/image/draw"
)

// maxSurfacePixels bounds the destination allocation (about 1 GiB of RGBA).
const maxSurfacePixels = 1 << 28

// Options configures an Engine.
type Options struct {
	// Interpolation selects the photo scaling kernel: "catmullrom"
	// (default), "bilinear", "approxbilinear" or "nearest".
	Interpolation string
}

// Engine renders rows. It is safe for concurrent use.
type Engine struct {
	scaler draw.Scaler
	fonts  sync.Pool
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	return &Engine{
		scaler: Scaler(opts.Interpolation),
		fonts: sync.Pool{
			New: func() any { return NewFontCache() },
		},
	}
}

// RenderRow composites one credential onto a fresh surface the size of
// tmpl.
func (e *Engine) RenderRow(ctx context.Context, tmpl image.Image, layout core.Layout, photos *core.PhotoLibrary, headers, row []string) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, &core.ResourceError{Resource: "template", Err: errors.New("no template loaded")}
	}
	b := tmpl.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx()*b.Dy() > maxSurfacePixels {
		return nil, &core.ResourceError{
			Resource: "template",
			Err:      fmt.Errorf("cannot allocate a %dx%d surface", b.Dx(), b.Dy()),
		}
	}

	fonts := e.fonts.Get().(*FontCache)
	defer e.fonts.Put(fonts)

	canvas := NewRasterCanvas(b.Dx(), b.Dy(), e.scaler, fonts)
	if err := Compose(ctx, canvas, tmpl, layout, photos, headers, row); err != nil {
		return nil, err
	}
	return canvas.Image(), nil
}

// Compose draws one credential onto c, which must already be sized to the
// template.
func Compose(ctx context.Context, c Canvas, tmpl image.Image, layout core.Layout, photos *core.PhotoLibrary, headers, row []string) error {
	c.DrawImage(tmpl, tmpl.Bounds(), c.Bounds())

	for _, f := range layout.ImageFields {
		if err := drawImageField(ctx, c, f, photos, headers, row); err != nil {
			return err
		}
	}

	for _, f := range layout.TextFields {
		if err := drawTextField(c, f, headers, row); err != nil {
			return err
		}
	}
	return nil
}

// PhotoKey returns the library key an image field resolves to for row, and
// whether the link column exists.
func PhotoKey(f core.ImageField, headers, row []string) (string, bool) {
	idx := -1
	want := strings.ToLower(f.LinkColumn)
	for i, h := range headers {
		if strings.ToLower(h) == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}
	if idx >= len(row) {
		return "", true
	}
	return core.LookupKey(row[idx]), true
}

func drawImageField(ctx context.Context, c Canvas, f core.ImageField, photos *core.PhotoLibrary, headers, row []string) error {
	key, ok := PhotoKey(f, headers, row)
	if !ok || key == "" {
		return nil
	}

	photo, found, err := photos.Decode(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	outer := Rect{X: f.X, Y: f.Y, W: f.Width, H: f.Height}
	thickness := f.FrameThickness()
	if thickness > 0 {
		c.FillRect(outer.Pixels(), FrameColor(f.FrameColor()))
	}

	inner := outer.Inset(thickness)
	if inner.Empty() {
		return nil
	}

	sb := photo.Bounds()
	crop := FitCrop(float64(sb.Dx()), float64(sb.Dy()), inner.W, inner.H)
	crop.X += float64(sb.Min.X)
	crop.Y += float64(sb.Min.Y)
	c.DrawImage(photo, crop.Pixels(), inner.Pixels())
	return nil
}

func drawTextField(c Canvas, f core.TextField, headers, row []string) error {
	size := f.FontSize.Px()
	if size <= 0 {
		return nil
	}

	style := TextStyle{
		Size:   size,
		Bold:   f.IsBold,
		Italic: f.IsItalic,
		Color:  ParseColor(f.Color),
	}
	x := f.X.Px()
	y := float64(f.Y.Px())

	text := core.Resolve(f.Content, headers, row)
	i := 0
	for line := range strings.SplitSeq(text, "\n") {
		top := int(math.Round(LineTop(y, i, size)))
		if err := c.DrawText(line, x, top, style); err != nil {
			return fmt.Errorf("draw text field %d: %w", f.ID, err)
		}
		i++
	}
	return nil
}

// FrameColor parses a frame color. An unset color draws black.
func FrameColor(s string) color.RGBA {
	if strings.TrimSpace(s) == "" {
		return color.RGBA{A: 0xff}
	}
	return ParseColor(s)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNGBytes encodes img as PNG into memory.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
