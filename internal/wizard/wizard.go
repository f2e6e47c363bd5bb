// Package wizard edits a layout from the terminal.
//
// The wizard is a menu loop over a copy of the layout. Each action asks
// for whole field values and replaces the field, so an aborted prompt never
// leaves a half-edited field behind. Nothing is saved here; the caller
// decides what to do with the returned layout.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/render"
)

// ErrDiscarded is returned when the user leaves without saving.
var ErrDiscarded = errors.New("wizard: changes discarded")

// Wizard edits one layout.
type Wizard struct {
	p       Prompter
	headers []string
	layout  core.Layout
}

// New creates a Wizard. headers, when known, drive link column choices
// and placeholder checks.
func New(p Prompter, headers []string) *Wizard {
	if p == nil {
		p = SurveyPrompter{}
	}
	return &Wizard{p: p, headers: headers}
}

// menuItem is one entry of the main menu.
type menuItem struct {
	label  string
	action func(ctx context.Context) error
}

// errFinished ends the menu loop.
var errFinished = errors.New("finished")

// Run edits a copy of start until the user saves or discards.
func (w *Wizard) Run(ctx context.Context, start core.Layout) (core.Layout, error) {
	w.layout = start.Clone()

	for {
		items := w.menu()
		labels := make([]string, len(items))
		for i, it := range items {
			labels[i] = it.label
		}

		choice, err := w.p.Select(ctx, w.summary(), labels, 0)
		if err != nil {
			return start, err
		}
		if choice < 0 || choice >= len(items) {
			continue
		}

		err = items[choice].action(ctx)
		switch {
		case errors.Is(err, errFinished):
			return w.layout.Clone(), nil
		case errors.Is(err, ErrDiscarded):
			return start, ErrDiscarded
		case err != nil:
			return start, err
		}
	}
}

func (w *Wizard) menu() []menuItem {
	items := []menuItem{
		{label: "Add text field", action: w.addText},
		{label: "Add image field", action: w.addImage},
	}
	if len(w.layout.TextFields) > 0 {
		items = append(items, menuItem{label: "Edit text field", action: w.editTextMenu})
	}
	if len(w.layout.ImageFields) > 0 {
		items = append(items, menuItem{label: "Edit image field", action: w.editImageMenu})
	}
	if len(w.layout.TextFields)+len(w.layout.ImageFields) > 0 {
		items = append(items, menuItem{label: "Remove field", action: w.removeMenu})
	}
	return append(items,
		menuItem{label: "Filename pattern", action: w.editPattern},
		menuItem{label: "Save and exit", action: func(context.Context) error { return errFinished }},
		menuItem{label: "Discard changes", action: func(context.Context) error { return ErrDiscarded }},
	)
}

func (w *Wizard) summary() string {
	return fmt.Sprintf("Layout: %d text, %d image fields, files named %q",
		len(w.layout.TextFields), len(w.layout.ImageFields), w.layout.FilenamePattern)
}

func (w *Wizard) addText(ctx context.Context) error {
	f := w.layout.NewTextField()
	edited, err := w.editText(ctx, f)
	if err != nil {
		w.layout.Remove(core.KindText, f.ID)
		return err
	}
	return w.layout.Put(edited)
}

func (w *Wizard) addImage(ctx context.Context) error {
	f := w.layout.NewImageField(w.headers)
	edited, err := w.editImage(ctx, f)
	if err != nil {
		w.layout.Remove(core.KindImage, f.ID)
		return err
	}
	return w.layout.Put(edited)
}

func (w *Wizard) editTextMenu(ctx context.Context) error {
	labels := make([]string, len(w.layout.TextFields))
	for i, f := range w.layout.TextFields {
		labels[i] = textLabel(f)
	}
	i, err := w.p.Select(ctx, "Which text field?", labels, 0)
	if err != nil || i < 0 {
		return err
	}
	edited, err := w.editText(ctx, w.layout.TextFields[i])
	if err != nil {
		return err
	}
	return w.layout.Put(edited)
}

func (w *Wizard) editImageMenu(ctx context.Context) error {
	labels := make([]string, len(w.layout.ImageFields))
	for i, f := range w.layout.ImageFields {
		labels[i] = imageLabel(f)
	}
	i, err := w.p.Select(ctx, "Which image field?", labels, 0)
	if err != nil || i < 0 {
		return err
	}
	edited, err := w.editImage(ctx, w.layout.ImageFields[i])
	if err != nil {
		return err
	}
	return w.layout.Put(edited)
}

func (w *Wizard) removeMenu(ctx context.Context) error {
	type ref struct {
		kind core.FieldKind
		id   int64
	}
	var (
		labels []string
		refs   []ref
	)
	for _, f := range w.layout.TextFields {
		labels = append(labels, textLabel(f))
		refs = append(refs, ref{core.KindText, f.ID})
	}
	for _, f := range w.layout.ImageFields {
		labels = append(labels, imageLabel(f))
		refs = append(refs, ref{core.KindImage, f.ID})
	}

	i, err := w.p.Select(ctx, "Remove which field?", labels, 0)
	if err != nil || i < 0 {
		return err
	}
	ok, err := w.p.Confirm(ctx, "Remove "+labels[i]+"?", false)
	if err != nil || !ok {
		return err
	}
	w.layout.Remove(refs[i].kind, refs[i].id)
	return nil
}

func (w *Wizard) editPattern(ctx context.Context) error {
	for {
		pattern, err := w.p.Input(ctx, "Filename pattern", w.layout.FilenamePattern, nil)
		if err != nil {
			return err
		}
		keep, err := w.acceptPlaceholders(ctx, pattern)
		if err != nil {
			return err
		}
		if keep {
			w.layout.FilenamePattern = pattern
			return nil
		}
	}
}

// editText asks for every member of f and returns the new value.
func (w *Wizard) editText(ctx context.Context, f core.TextField) (core.TextField, error) {
	for {
		content, err := w.p.Multiline(ctx, "Text (use {{column}} for data)", f.Content)
		if err != nil {
			return f, err
		}
		keep, err := w.acceptPlaceholders(ctx, content)
		if err != nil {
			return f, err
		}
		if keep {
			f.Content = content
			break
		}
	}

	x, err := w.number(ctx, "X", float64(f.X))
	if err != nil {
		return f, err
	}
	y, err := w.number(ctx, "Y", float64(f.Y))
	if err != nil {
		return f, err
	}
	size, err := w.number(ctx, "Font size", float64(f.FontSize))
	if err != nil {
		return f, err
	}
	color, err := w.p.Input(ctx, "Color", f.Color, validateColor)
	if err != nil {
		return f, err
	}
	bold, err := w.p.Confirm(ctx, "Bold?", f.IsBold)
	if err != nil {
		return f, err
	}
	italic, err := w.p.Confirm(ctx, "Italic?", f.IsItalic)
	if err != nil {
		return f, err
	}

	f.X, f.Y, f.FontSize = core.Coord(x), core.Coord(y), core.Coord(size)
	f.Color = strings.TrimSpace(color)
	f.IsBold, f.IsItalic = bold, italic
	return f, nil
}

// editImage asks for every member of f and returns the new value.
func (w *Wizard) editImage(ctx context.Context, f core.ImageField) (core.ImageField, error) {
	var err error
	if f.X, err = w.number(ctx, "X", f.X); err != nil {
		return f, err
	}
	if f.Y, err = w.number(ctx, "Y", f.Y); err != nil {
		return f, err
	}
	if f.Width, err = w.number(ctx, "Width", f.Width); err != nil {
		return f, err
	}
	if f.Height, err = w.number(ctx, "Height", f.Height); err != nil {
		return f, err
	}

	if len(w.headers) > 0 {
		def := max(indexOf(w.headers, strings.ToLower(f.LinkColumn)), 0)
		i, err := w.p.Select(ctx, "Column with the photo name", w.headers, def)
		if err != nil {
			return f, err
		}
		if i >= 0 {
			f.LinkColumn = w.headers[i]
		}
	} else {
		link, err := w.p.Input(ctx, "Column with the photo name", f.LinkColumn, nil)
		if err != nil {
			return f, err
		}
		f.LinkColumn = strings.TrimSpace(link)
	}

	framed, err := w.p.Confirm(ctx, "Draw a frame?", f.FrameThickness() > 0)
	if err != nil {
		return f, err
	}
	if !framed {
		f.Frame = nil
		return f, nil
	}
	frame := core.Frame{Color: "#FFFFFF", Thickness: 4}
	if f.Frame != nil {
		frame = *f.Frame
	}
	if frame.Color, err = w.p.Input(ctx, "Frame color", frame.Color, validateColor); err != nil {
		return f, err
	}
	if frame.Thickness, err = w.number(ctx, "Frame thickness", frame.Thickness); err != nil {
		return f, err
	}
	f.Frame = &frame
	return f, nil
}

// acceptPlaceholders reports whether text may be kept. Unknown columns
// need confirmation when the headers are known.
func (w *Wizard) acceptPlaceholders(ctx context.Context, text string) (bool, error) {
	if len(w.headers) == 0 {
		return true, nil
	}
	var unknown []string
	for _, name := range core.ExtractPlaceholders(text) {
		if !core.HasHeader(w.headers, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return true, nil
	}
	return w.p.Confirm(ctx, fmt.Sprintf("Unknown columns: %s. Keep anyway?", strings.Join(unknown, ", ")), false)
}

func (w *Wizard) number(ctx context.Context, message string, def float64) (float64, error) {
	s, err := w.p.Input(ctx, message, strconv.FormatFloat(def, 'f', -1, 64), validateNumber)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func validateNumber(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number")
	}
	if v < 0 {
		return errors.New("enter a positive number")
	}
	return nil
}

func validateColor(s string) error {
	if _, ok := render.LookupColor(s); !ok {
		return errors.New("enter a hex color such as #FFFFFF")
	}
	return nil
}

func textLabel(f core.TextField) string {
	content := []rune(strings.ReplaceAll(f.Content, "\n", " / "))
	if len(content) > 40 {
		content = append(content[:37], []rune("...")...)
	}
	return fmt.Sprintf("text #%d: %s", f.ID, string(content))
}

func imageLabel(f core.ImageField) string {
	return fmt.Sprintf("image #%d: %s (%gx%g)", f.ID, f.LinkColumn, f.Width, f.Height)
}
