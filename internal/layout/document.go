// Package layout loads, validates, and persists field layouts.
//
// A layout document has exactly three members: textFields (array),
// imageFields (array) and filenamePattern (string). Export writes indented
// JSON; Import accepts JSON or YAML with the same shape. Exporting and then
// importing a layout reproduces it exactly.
package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/credgen/internal/core"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned when an imported document does not have
// the layout shape.
var ErrInvalidDocument = errors.New("invalid layout document")

// ErrNotFound is returned by stores that have no saved layout.
var ErrNotFound = errors.New("layout not found")

// DefaultFilenamePattern names credentials when no pattern is configured.
const DefaultFilenamePattern = "credencial-{{id}}.png"

// Default returns the layout a new workspace starts with.
func Default() core.Layout {
	return core.Layout{
		TextFields: []core.TextField{
			{ID: 1, Content: "{{nombre}}\n{{apellidos}}", X: 150, Y: 100, FontSize: 32, Color: "#FFFFFF", IsBold: true},
			{ID: 2, Content: "ID: {{id}} - {{puesto}}", X: 150, Y: 180, FontSize: 20, Color: "#DDDDDD"},
		},
		ImageFields: []core.ImageField{
			{ID: 1, X: 30, Y: 80, Width: 100, Height: 100, LinkColumn: "id", Frame: &core.Frame{Color: "#ffffff", Thickness: 4}},
		},
		FilenamePattern: DefaultFilenamePattern,
	}
}

// Export encodes l as an indented JSON document.
func Export(l core.Layout) ([]byte, error) {
	l = l.Clone()
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export layout: %w", err)
	}
	return data, nil
}

// Import decodes a JSON or YAML layout document.
func Import(data []byte) (core.Layout, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return core.Layout{}, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	raw, err := decodeMembers(data)
	if err != nil {
		return core.Layout{}, err
	}

	if err := requireKind(raw, "textFields", '['); err != nil {
		return core.Layout{}, err
	}
	if err := requireKind(raw, "imageFields", '['); err != nil {
		return core.Layout{}, err
	}
	if err := requireKind(raw, "filenamePattern", '"'); err != nil {
		return core.Layout{}, err
	}

	var l core.Layout
	if err := json.Unmarshal(raw["textFields"], &l.TextFields); err != nil {
		return core.Layout{}, fmt.Errorf("%w: textFields: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(raw["imageFields"], &l.ImageFields); err != nil {
		return core.Layout{}, fmt.Errorf("%w: imageFields: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(raw["filenamePattern"], &l.FilenamePattern); err != nil {
		return core.Layout{}, fmt.Errorf("%w: filenamePattern: %v", ErrInvalidDocument, err)
	}
	return l, nil
}

// decodeMembers returns the top-level members as JSON, converting YAML
// input on the way.
func decodeMembers(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	jsonErr := json.Unmarshal(data, &raw)
	if jsonErr == nil {
		if raw == nil {
			return nil, fmt.Errorf("%w: document is null", ErrInvalidDocument)
		}
		return raw, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("%w: not a JSON or YAML object: %v", ErrInvalidDocument, jsonErr)
	}
	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(converted, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return raw, nil
}

func requireKind(raw map[string]json.RawMessage, member string, open byte) error {
	v, ok := raw[member]
	v = bytes.TrimSpace(v)
	if !ok || len(v) == 0 || v[0] != open {
		kind := "an array"
		if open == '"' {
			kind = "a string"
		}
		return fmt.Errorf("%w: %s must be %s", ErrInvalidDocument, member, kind)
	}
	return nil
}
