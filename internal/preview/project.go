// Package preview projects a layout onto a scaled, on-screen template.
//
// Nothing here rasterizes. A Scene is a list of positioned boxes and text
// runs in display pixels, rendered as HTML over the template image by the
// web package. Unlike the final render, an image field whose photo cannot be
// resolved is shown as a placeholder box; that box never reaches a
// credential.
package preview

import (
	"math"
	"strings"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/render"
)

// Placeholder box styling for unresolved photos.
const (
	PlaceholderFill    = "rgba(255, 255, 255, 0.1)"
	PlaceholderBorder  = "1px dashed rgba(255, 255, 255, 0.3)"
	PlaceholderText    = "rgba(255, 255, 255, 0.5)"
	placeholderCaption = 10.0

	// GridStep is the spacing of the alignment grid in display pixels.
	GridStep = 50
)

// Box is a rectangle in display pixels.
type Box struct {
	X, Y, W, H float64
}

// PhotoPlaceholder is the preview-only box drawn for an unresolved photo.
type PhotoPlaceholder struct {
	Caption  string
	FontSize float64
}

// ImageOverlay is one projected image field. Inner is relative to Outer.
type ImageOverlay struct {
	FieldID    int64
	Outer      Box
	Background string
	Inner      *Box
	PhotoKey   string
	HasPhoto   bool
	Missing    *PhotoPlaceholder
}

// TextOverlay is one projected text field.
type TextOverlay struct {
	FieldID    int64
	X, Y       float64
	FontSize   float64
	Color      string
	Bold       bool
	Italic     bool
	LineHeight float64
	Lines      []string
}

// Scene is a projected layout at a display scale.
type Scene struct {
	Scale        float64
	NativeWidth  int
	NativeHeight int
	Images       []ImageOverlay
	Texts        []TextOverlay
}

// DisplayWidth is the projected template width.
func (s Scene) DisplayWidth() float64 { return float64(s.NativeWidth) * s.Scale }

// DisplayHeight is the projected template height.
func (s Scene) DisplayHeight() float64 { return float64(s.NativeHeight) * s.Scale }

// ToTemplate maps a display position back to template pixels.
func (s Scene) ToTemplate(dx, dy float64) (x, y int) {
	if s.Scale <= 0 {
		return 0, 0
	}
	return int(math.Round(dx / s.Scale)), int(math.Round(dy / s.Scale))
}

// GridLines returns the display offsets of the vertical and horizontal
// grid lines.
func (s Scene) GridLines() (xs, ys []float64) {
	for x := 0.0; x < s.DisplayWidth(); x += GridStep {
		xs = append(xs, x)
	}
	for y := 0.0; y < s.DisplayHeight(); y += GridStep {
		ys = append(ys, y)
	}
	return xs, ys
}

// ScaleFor returns displayWidth / nativeWidth, or 1 when the native width
// is unknown.
func ScaleFor(displayWidth, nativeWidth float64) float64 {
	if nativeWidth <= 0 || displayWidth <= 0 {
		return 1
	}
	return displayWidth / nativeWidth
}

// ClampRow keeps a preview row index inside [0, rows-1]; 0 when there are
// no rows.
func ClampRow(i, rows int) int {
	if rows <= 0 || i < 0 {
		return 0
	}
	if i >= rows {
		return rows - 1
	}
	return i
}

// ProjectRow projects row i of snap (clamped) at displayWidth. It reports
// false when no template is loaded. Without data rows the placeholders are
// shown unresolved.
func ProjectRow(snap core.Snapshot, i int, displayWidth float64) (Scene, bool) {
	if snap.Template == nil {
		return Scene{}, false
	}
	b := snap.Template.Bounds()
	row := snap.Dataset.Row(ClampRow(i, len(snap.Dataset.Rows)))
	s := ScaleFor(displayWidth, float64(b.Dx()))
	return Project(snap.Layout, snap.Dataset.Headers, row, snap.Photos, b.Dx(), b.Dy(), s), true
}

// Project re-expresses layout at scale s for row. Every spatial quantity
// (position, size, font size, frame thickness) is multiplied by s.
func Project(layout core.Layout, headers, row []string, photos *core.PhotoLibrary, nativeW, nativeH int, s float64) Scene {
	scene := Scene{
		Scale:        s,
		NativeWidth:  nativeW,
		NativeHeight: nativeH,
		Images:       make([]ImageOverlay, 0, len(layout.ImageFields)),
		Texts:        make([]TextOverlay, 0, len(layout.TextFields)),
	}

	for _, f := range layout.ImageFields {
		scene.Images = append(scene.Images, projectImage(f, headers, row, photos, s))
	}

	for _, f := range layout.TextFields {
		scene.Texts = append(scene.Texts, TextOverlay{
			FieldID:    f.ID,
			X:          float64(f.X) * s,
			Y:          float64(f.Y) * s,
			FontSize:   float64(f.FontSize) * s,
			Color:      f.Color,
			Bold:       f.IsBold,
			Italic:     f.IsItalic,
			LineHeight: 1.2,
			Lines:      strings.Split(core.Resolve(f.Content, headers, row), "\n"),
		})
	}

	return scene
}

func projectImage(f core.ImageField, headers, row []string, photos *core.PhotoLibrary, s float64) ImageOverlay {
	bg := f.FrameColor()
	if bg == "" {
		bg = "transparent"
	}

	ov := ImageOverlay{
		FieldID:    f.ID,
		Outer:      Box{X: f.X * s, Y: f.Y * s, W: f.Width * s, H: f.Height * s},
		Background: bg,
	}

	t := f.FrameThickness()
	inner := render.Rect{X: 0, Y: 0, W: f.Width, H: f.Height}.Inset(t)
	if inner.Empty() {
		return ov
	}
	ov.Inner = &Box{X: inner.X * s, Y: inner.Y * s, W: inner.W * s, H: inner.H * s}

	key, linked := render.PhotoKey(f, headers, row)
	if linked && row != nil {
		ov.PhotoKey = key
	}
	ov.HasPhoto = ov.PhotoKey != "" && photos.Has(ov.PhotoKey)

	if !ov.HasPhoto {
		caption := ov.PhotoKey
		if caption == "" {
			caption = "N/A"
		}
		ov.Missing = &PhotoPlaceholder{
			Caption:  "Photo not found for '" + caption + "'",
			FontSize: placeholderCaption * s,
		}
	}
	return ov
}
