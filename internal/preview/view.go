package preview

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// plainText renders a cell value as HTML text. The value is escaped first
// so characters such as '<' show up as written, as they do on the
// rendered credential.
func plainText(s string) string {
	return textPolicy.Sanitize(templ.EscapeString(s))
}

// ViewOptions supplies the image sources of a scene.
type ViewOptions struct {
	TemplateSrc string
	// PhotoSrc returns the src of the photo stored under key.
	PhotoSrc func(key string) string
	Grid     bool
}

// SceneView renders scene as absolutely positioned HTML over the template.
// The root element has id "credential".
func SceneView(scene Scene, opts ViewOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		fmt.Fprintf(&b, `<div id="credential" style="position:relative;width:%s;height:%s;overflow:hidden;font-family:'Go',sans-serif">`,
			px(scene.DisplayWidth()), px(scene.DisplayHeight()))
		fmt.Fprintf(&b, `<img src="%s" alt="template" style="position:absolute;left:0;top:0;width:100%%;height:100%%">`,
			templ.EscapeString(opts.TemplateSrc))

		for _, ov := range scene.Images {
			writeImageOverlay(&b, ov, opts)
		}
		for _, t := range scene.Texts {
			writeTextOverlay(&b, t)
		}

		if opts.Grid {
			fmt.Fprintf(&b, `<div class="grid" style="position:absolute;left:0;top:0;width:100%%;height:100%%;pointer-events:none;`+
				`background-image:linear-gradient(rgba(255,255,255,0.2) 1px, transparent 1px),`+
				`linear-gradient(90deg, rgba(255,255,255,0.2) 1px, transparent 1px);background-size:%dpx %dpx"></div>`,
				GridStep, GridStep)
		}

		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeImageOverlay(b *strings.Builder, ov ImageOverlay, opts ViewOptions) {
	fmt.Fprintf(b, `<div class="image-field" data-field="%d" style="position:absolute;left:%s;top:%s;width:%s;height:%s;background-color:%s">`,
		ov.FieldID, px(ov.Outer.X), px(ov.Outer.Y), px(ov.Outer.W), px(ov.Outer.H), cssColor(ov.Background))

	if in := ov.Inner; in != nil {
		pos := fmt.Sprintf("position:absolute;left:%s;top:%s;width:%s;height:%s", px(in.X), px(in.Y), px(in.W), px(in.H))
		switch {
		case ov.HasPhoto && opts.PhotoSrc != nil:
			fmt.Fprintf(b, `<img src="%s" alt="%s" style="%s;object-fit:cover">`,
				templ.EscapeString(opts.PhotoSrc(ov.PhotoKey)), plainText(ov.PhotoKey), pos)
		case ov.Missing != nil:
			fmt.Fprintf(b, `<div class="photo-missing" style="%s;box-sizing:border-box;background-color:%s;border:%s;`+
				`display:flex;align-items:center;justify-content:center;font-size:%s;color:%s;text-align:center;overflow:hidden">`+
				`<span style="padding:2px">%s</span></div>`,
				pos, PlaceholderFill, PlaceholderBorder, px(ov.Missing.FontSize), PlaceholderText,
				plainText(ov.Missing.Caption))
		}
	}

	b.WriteString(`</div>`)
}

func writeTextOverlay(b *strings.Builder, t TextOverlay) {
	weight, style := "normal", "normal"
	if t.Bold {
		weight = "bold"
	}
	if t.Italic {
		style = "italic"
	}

	lines := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = plainText(l)
	}

	fmt.Fprintf(b, `<div class="text-field" data-field="%d" style="position:absolute;left:%s;top:%s;font-size:%s;color:%s;`+
		`font-weight:%s;font-style:%s;white-space:pre;line-height:%s">%s</div>`,
		t.FieldID, px(t.X), px(t.Y), px(t.FontSize), cssColor(t.Color),
		weight, style, strconv.FormatFloat(t.LineHeight, 'f', -1, 64), strings.Join(lines, "\n"))
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// cssColor normalizes a user color so it cannot break out of a style
// attribute.
func cssColor(s string) string {
	c := render.ParseColor(s)
	if c.A == 0 {
		return "transparent"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
