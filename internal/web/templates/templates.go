// Package templates holds the HTML components of the preview server.
package templates

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissible error box for a failed request.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<strong>%s</strong>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p>%s</p>`, templ.EscapeString(action))
		}
		if code != "" {
			fmt.Fprintf(&b, `<small>Code: %s</small>`, templ.EscapeString(code))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Issue is one validation message shown next to the preview.
type Issue struct {
	Key        string
	Message    string
	Suggestion string
}

// SortIssues orders issues by key.
func SortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool { return issues[i].Key < issues[j].Key })
}

// PageData is everything the editor page shows.
type PageData struct {
	TemplateName string
	DataName     string
	Rows         int
	Photos       int
	Row          int
	DisplayWidth int
	Issues       []Issue
	SaveError    string
	// Preview is the rendered scene, nil when no template is loaded.
	Preview templ.Component
}

// Issues renders the validation panel.
func Issues(issues []Issue) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<section id="issues">`)
		if len(issues) == 0 {
			b.WriteString(`<p class="ok">Ready to generate.</p>`)
		} else {
			b.WriteString(`<ul>`)
			for _, is := range issues {
				fmt.Fprintf(&b, `<li data-key="%s">%s`, templ.EscapeString(is.Key), templ.EscapeString(is.Message))
				if is.Suggestion != "" {
					fmt.Fprintf(&b, ` <em>%s</em>`, templ.EscapeString(is.Suggestion))
				}
				b.WriteString(`</li>`)
			}
			b.WriteString(`</ul>`)
		}
		b.WriteString(`</section>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Page renders the full editor page.
func Page(d PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<title>credgen</title><style>` + pageCSS + `</style></head><body>`)

		b.WriteString(`<header><h1>credgen</h1><dl>`)
		fmt.Fprintf(&b, `<dt>Template</dt><dd>%s</dd>`, orDash(d.TemplateName))
		fmt.Fprintf(&b, `<dt>Data</dt><dd>%s (%d rows)</dd>`, orDash(d.DataName), d.Rows)
		fmt.Fprintf(&b, `<dt>Photos</dt><dd>%d</dd>`, d.Photos)
		b.WriteString(`</dl>`)
		if d.SaveError != "" {
			fmt.Fprintf(&b, `<p class="warn">Layout not saved: %s</p>`, templ.EscapeString(d.SaveError))
		}
		b.WriteString(`</header>`)

		b.WriteString(`<main><section id="uploads">`)
		b.WriteString(uploadForm("/api/template", "file", "Template image", "image/*", false))
		b.WriteString(uploadForm("/api/data", "file", "Data (.csv, .txt, .xlsx)", ".csv,.txt,.xlsx", false))
		b.WriteString(uploadForm("/api/photos", "files", "Photos", "image/*", true))
		b.WriteString(`<p><a href="/api/layout" download="layout.json">Export layout</a></p>`)
		b.WriteString(`<form method="post" action="/api/generate"><button type="submit">Generate credentials</button></form>`)
		b.WriteString(`</section>`)

		b.WriteString(`<section id="preview">`)
		fmt.Fprintf(&b, `<nav><a href="/?row=%d">&larr; Previous</a> <span>Row %d of %d</span> <a href="/?row=%d">Next &rarr;</a> `+
			`<a href="/?row=%d&amp;grid=1">Grid</a></nav>`, max(d.Row-1, 0), d.Row+1, max(d.Rows, 1), d.Row+1, d.Row)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		b.Reset()

		if d.Preview != nil {
			if err := d.Preview.Render(ctx, w); err != nil {
				return err
			}
		} else {
			b.WriteString(`<p class="empty">Load a template image to see the preview.</p>`)
		}
		b.WriteString(`<p id="coords"></p></section>`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		b.Reset()

		if err := Issues(d.Issues).Render(ctx, w); err != nil {
			return err
		}

		fmt.Fprintf(&b, `</main><script>%s</script></body></html>`, fmt.Sprintf(pageJS, d.DisplayWidth))
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func uploadForm(action, field, label, accept string, multiple bool) string {
	mult := ""
	if multiple {
		mult = " multiple"
	}
	return fmt.Sprintf(`<form method="post" action="%s" enctype="multipart/form-data"><label>%s `+
		`<input type="file" name="%s" accept="%s"%s></label><button type="submit">Load</button></form>`,
		action, templ.EscapeString(label), field, accept, mult)
}

func orDash(s string) string {
	if s == "" {
		return "&mdash;"
	}
	return templ.EscapeString(s)
}

const pageCSS = `body{margin:0;font-family:sans-serif;background:#0f172a;color:#e2e8f0}
header,main{padding:1rem}header dl{display:flex;gap:1rem}dt{font-weight:bold}dd{margin:0}
main{display:grid;grid-template-columns:18rem 1fr 18rem;gap:1rem}form{margin-bottom:.75rem}
a{color:#93c5fd}.alert-error{background:#7f1d1d;padding:.5rem}.warn{color:#fbbf24}.ok{color:#86efac}`

// pageJS submits forms with fetch so errors render inline, and shows the
// template coordinate under the pointer.
const pageJS = `
document.querySelectorAll('form').forEach(function(f){
  f.addEventListener('submit', async function(e){
    e.preventDefault();
    const res = await fetch(f.action, {method: 'POST', body: new FormData(f), headers: {'HX-Request': 'true'}});
    if (res.ok) { location.reload(); return; }
    document.getElementById('issues').insertAdjacentHTML('afterbegin', await res.text());
  });
});
const card = document.getElementById('credential');
if (card) card.addEventListener('mousemove', async function(e){
  const r = card.getBoundingClientRect();
  const q = new URLSearchParams({x: e.clientX - r.left, y: e.clientY - r.top, width: %d});
  const res = await fetch('/api/coords?' + q);
  if (res.ok) { const c = await res.json(); document.getElementById('coords').textContent = 'X: ' + c.x + ', Y: ' + c.y; }
});
`
