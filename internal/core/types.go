package core

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// Coord is a numeric layout quantity (position or font size).
// Layouts edited through forms may carry these as strings, so Coord
// unmarshals from either a JSON number or a numeric string. Anything
// unparseable degrades to 0.
type Coord float64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coord) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*c = 0
		return nil
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*c = 0
			return nil
		}
		*c = Coord(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	*c = Coord(f)
	return nil
}

// Px returns the value as whole pixels, truncating toward zero.
// NaN and infinities become 0.
func (c Coord) Px() int {
	f := float64(c)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// FieldKind discriminates the variants of Field.
type FieldKind string

const (
	KindText  FieldKind = "text"
	KindImage FieldKind = "image"
)

// Field is one entry of a layout. It is implemented by TextField and
// ImageField only; layouts are edited by replacing whole values.
type Field interface {
	FieldID() int64
	Kind() FieldKind
}

// TextField draws a (possibly multi-line) placeholder template.
type TextField struct {
	ID       int64  `json:"id"`
	Content  string `json:"content"`
	X        Coord  `json:"x"`
	Y        Coord  `json:"y"`
	FontSize Coord  `json:"fontSize"`
	Color    string `json:"color"`
	IsBold   bool   `json:"isBold"`
	IsItalic bool   `json:"isItalic"`
}

func (f TextField) FieldID() int64  { return f.ID }
func (f TextField) Kind() FieldKind { return KindText }

// Frame is the optional border drawn behind an image field's photo.
type Frame struct {
	Color     string  `json:"color"`
	Thickness float64 `json:"thickness"`
}

// ImageField draws the photo whose key is found in LinkColumn.
type ImageField struct {
	ID         int64   `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	LinkColumn string  `json:"linkColumn"`
	Frame      *Frame  `json:"frame,omitempty"`
}

func (f ImageField) FieldID() int64  { return f.ID }
func (f ImageField) Kind() FieldKind { return KindImage }

// FrameThickness returns the frame thickness, 0 when no frame is configured.
func (f ImageField) FrameThickness() float64 {
	if f.Frame == nil {
		return 0
	}
	return f.Frame.Thickness
}

// FrameColor returns the configured frame color or "".
func (f ImageField) FrameColor() string {
	if f.Frame == nil {
		return ""
	}
	return f.Frame.Color
}

// Layout is the ordered set of fields plus the filename pattern.
// It is the only state that survives across sessions.
type Layout struct {
	TextFields      []TextField  `json:"textFields"`
	ImageFields     []ImageField `json:"imageFields"`
	FilenamePattern string       `json:"filenamePattern"`
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	out := Layout{
		TextFields:      make([]TextField, len(l.TextFields)),
		ImageFields:     make([]ImageField, len(l.ImageFields)),
		FilenamePattern: l.FilenamePattern,
	}
	copy(out.TextFields, l.TextFields)
	for i, f := range l.ImageFields {
		if f.Frame != nil {
			fr := *f.Frame
			f.Frame = &fr
		}
		out.ImageFields[i] = f
	}
	return out
}

// Put replaces the field with the same kind and ID, or appends it.
func (l *Layout) Put(f Field) error {
	switch v := f.(type) {
	case TextField:
		for i := range l.TextFields {
			if l.TextFields[i].ID == v.ID {
				l.TextFields[i] = v
				return nil
			}
		}
		l.TextFields = append(l.TextFields, v)
	case ImageField:
		for i := range l.ImageFields {
			if l.ImageFields[i].ID == v.ID {
				l.ImageFields[i] = v
				return nil
			}
		}
		l.ImageFields = append(l.ImageFields, v)
	default:
		return fmt.Errorf("unsupported field type %T", f)
	}
	return nil
}

// Remove deletes the field of the given kind and ID. It reports whether a
// field was removed.
func (l *Layout) Remove(kind FieldKind, id int64) bool {
	switch kind {
	case KindText:
		for i := range l.TextFields {
			if l.TextFields[i].ID == id {
				l.TextFields = append(l.TextFields[:i], l.TextFields[i+1:]...)
				return true
			}
		}
	case KindImage:
		for i := range l.ImageFields {
			if l.ImageFields[i].ID == id {
				l.ImageFields = append(l.ImageFields[:i], l.ImageFields[i+1:]...)
				return true
			}
		}
	}
	return false
}

// NextID returns an ID not used by any field of the layout.
func (l Layout) NextID() int64 {
	var max int64
	for _, f := range l.TextFields {
		if f.ID > max {
			max = f.ID
		}
	}
	for _, f := range l.ImageFields {
		if f.ID > max {
			max = f.ID
		}
	}
	return max + 1
}

// NewTextField appends a text field with authoring defaults and returns it.
func (l *Layout) NewTextField() TextField {
	f := TextField{
		ID:       l.NextID(),
		Content:  "New field",
		X:        50,
		Y:        200,
		FontSize: 16,
		Color:    "#FFFFFF",
	}
	l.TextFields = append(l.TextFields, f)
	return f
}

// NewImageField appends an image field linked to the first header (if any)
// and returns it.
func (l *Layout) NewImageField(headers []string) ImageField {
	link := ""
	if len(headers) > 0 {
		link = headers[0]
	}
	f := ImageField{
		ID:         l.NextID(),
		X:          50,
		Y:          50,
		Width:      100,
		Height:     100,
		LinkColumn: link,
		Frame:      &Frame{Color: "#FFFFFF", Thickness: 0},
	}
	l.ImageFields = append(l.ImageFields, f)
	return f
}

// Dataset is a parsed table: lower-cased unique headers and data rows.
// Rows are kept exactly as parsed; shape problems are reported by Validate.
type Dataset struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named column (case-insensitive),
// or -1.
func (d Dataset) ColumnIndex(name string) int {
	return columnIndex(d.Headers, name)
}

// Row returns the i-th data row, or nil when out of range.
func (d Dataset) Row(i int) []string {
	if i < 0 || i >= len(d.Rows) {
		return nil
	}
	return d.Rows[i]
}

func columnIndex(headers []string, name string) int {
	want := strings.ToLower(name)
	for i, h := range headers {
		if strings.ToLower(h) == want {
			return i
		}
	}
	return -1
}

// Snapshot is an immutable view of everything the pipeline reads.
// Template is nil while no template is loaded; DataLoaded is false while
// no (non-blank) data source is loaded.
type Snapshot struct {
	Template   image.Image
	DataLoaded bool
	Dataset    Dataset
	Layout     Layout
	Photos     *PhotoLibrary
}
