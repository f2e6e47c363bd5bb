package render

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// The Go font family stands in for the generic sans-serif family. It is
// embedded, so output does not depend on the fonts installed on the host.

type fontStyle int

const (
	styleRegular fontStyle = iota
	styleBold
	styleItalic
	styleBoldItalic
)

func styleOf(bold, italic bool) fontStyle {
	switch {
	case bold && italic:
		return styleBoldItalic
	case bold:
		return styleBold
	case italic:
		return styleItalic
	default:
		return styleRegular
	}
}

var (
	parseOnce sync.Once
	families  [4]*opentype.Font
	parseErr  error
)

func goFonts() ([4]*opentype.Font, error) {
	parseOnce.Do(func() {
		sources := [4][]byte{
			styleRegular:    goregular.TTF,
			styleBold:       gobold.TTF,
			styleItalic:     goitalic.TTF,
			styleBoldItalic: gobolditalic.TTF,
		}
		for i, ttf := range sources {
			f, err := opentype.Parse(ttf)
			if err != nil {
				parseErr = fmt.Errorf("parse font %d: %w", i, err)
				return
			}
			families[i] = f
		}
	})
	return families, parseErr
}

type faceKey struct {
	style fontStyle
	size  int
}

// FontCache hands out faces keyed by style and pixel size. Faces are not
// safe for concurrent use, so neither is a FontCache; give each goroutine
// its own.
type FontCache struct {
	faces map[faceKey]font.Face
}

// NewFontCache creates an empty cache.
func NewFontCache() *FontCache {
	return &FontCache{faces: make(map[faceKey]font.Face)}
}

// Face returns the face for a whole-pixel size. Sizes are rendered at
// 72 DPI so one point equals one pixel.
func (c *FontCache) Face(size int, bold, italic bool) (font.Face, error) {
	key := faceKey{style: styleOf(bold, italic), size: size}
	if face, ok := c.faces[key]; ok {
		return face, nil
	}

	fonts, err := goFonts()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(fonts[key.style], &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face %dpx: %w", size, err)
	}
	c.faces[key] = face
	return face, nil
}

// Close releases every cached face.
func (c *FontCache) Close() error {
	for k, face := range c.faces {
		face.Close()
		delete(c.faces, k)
	}
	return nil
}
