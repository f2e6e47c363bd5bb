package layout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/google/go-cmp/cmp"
)

func TestExportImportRoundTrip(t *testing.T) {
	layouts := map[string]core.Layout{
		"default": Default(),
		"empty":   {FilenamePattern: ""},
		"no frame": {
			TextFields:      []core.TextField{{ID: 3, Content: "a\nb", X: 1.5, Y: 2, FontSize: 9, Color: "#000", IsItalic: true}},
			ImageFields:     []core.ImageField{{ID: 4, X: 1, Y: 2, Width: 3, Height: 4, LinkColumn: "Foto"}},
			FilenamePattern: "{{id}}.png",
		},
	}

	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			data, err := Export(l)
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			got, err := Import(data)
			if err != nil {
				t.Fatalf("Import() error = %v\n%s", err, data)
			}
			if diff := cmp.Diff(l.Clone(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExport_Shape(t *testing.T) {
	data, err := Export(core.Layout{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"textFields": []`, `"imageFields": []`, `"filenamePattern": ""`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Export() = %s, missing %s", data, want)
		}
	}
}

func TestImport_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"null", "null"},
		{"array", "[]"},
		{"missing textFields", `{"imageFields": [], "filenamePattern": ""}`},
		{"textFields not array", `{"textFields": {}, "imageFields": [], "filenamePattern": ""}`},
		{"imageFields null", `{"textFields": [], "imageFields": null, "filenamePattern": ""}`},
		{"pattern not string", `{"textFields": [], "imageFields": [], "filenamePattern": 7}`},
		{"bad field", `{"textFields": [{"id": "x"}], "imageFields": [], "filenamePattern": ""}`},
		{"garbage", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import([]byte(tt.doc))
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Import() error = %v, want ErrInvalidDocument", err)
			}
			if got := core.MapError(err).Code; got != "LAY001" {
				t.Errorf("MapError code = %s, want LAY001", got)
			}
		})
	}
}

func TestImport_FormStrings(t *testing.T) {
	doc := `{"textFields":[{"id":1,"content":"x","x":"150","y":"100","fontSize":"abc","color":"#fff","isBold":false,"isItalic":false}],
		"imageFields":[],"filenamePattern":"a.png"}`

	l, err := Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	f := l.TextFields[0]
	if f.X != 150 || f.Y != 100 || f.FontSize != 0 {
		t.Errorf("coerced field = %+v", f)
	}
}

func TestImport_YAML(t *testing.T) {
	doc := `
textFields:
  - id: 1
    content: "{{nombre}}"
    x: 150
    y: 100
    fontSize: 32
    color: "#FFFFFF"
    isBold: true
imageFields:
  - id: 2
    x: 30
    y: 80
    width: 100
    height: 100
    linkColumn: id
    frame:
      color: "#ffffff"
      thickness: 4
filenamePattern: "credencial-{{id}}.png"
`
	got, err := Import([]byte(doc))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	want := core.Layout{
		TextFields:      []core.TextField{{ID: 1, Content: "{{nombre}}", X: 150, Y: 100, FontSize: 32, Color: "#FFFFFF", IsBold: true}},
		ImageFields:     []core.ImageField{{ID: 2, X: 30, Y: 80, Width: 100, Height: 100, LinkColumn: "id", Frame: &core.Frame{Color: "#ffffff", Thickness: 4}}},
		FilenamePattern: "credencial-{{id}}.png",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Import(YAML) mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "layout.json")
	store := NewFileStore(path)

	if _, err := store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on missing file error = %v, want ErrNotFound", err)
	}

	l, err := LoadOrDefault(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), l); diff != "" {
		t.Errorf("LoadOrDefault() mismatch (-want +got):\n%s", diff)
	}

	l.FilenamePattern = "{{id}}-{{nombre}}.png"
	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(l, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("store left %d files behind, want 1", len(entries))
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := os.WriteFile(path, []byte(`{"textFields": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadOrDefault(context.Background(), NewFileStore(path))
	if !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("LoadOrDefault() error = %v, want ErrInvalidDocument", err)
	}
}
