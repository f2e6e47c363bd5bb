package core

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validSnapshot() Snapshot {
	photos := NewPhotoLibrary()
	photos.Set("7", []byte("png"))

	return Snapshot{
		Template:   image.NewRGBA(image.Rect(0, 0, 60, 40)),
		DataLoaded: true,
		Dataset:    ParseTabular("id,nombre\n7,Ana"),
		Layout: Layout{
			TextFields:      []TextField{{ID: 1, Content: "{{Nombre}}", FontSize: 12}},
			ImageFields:     []ImageField{{ID: 2, Width: 10, Height: 10, LinkColumn: "ID"}},
			FilenamePattern: "credencial-{{id}}.png",
		},
		Photos: photos,
	}
}

func TestValidate_Valid(t *testing.T) {
	errs := Validate(validSnapshot())
	if !errs.Empty() {
		t.Fatalf("Validate() = %v, want empty", errs)
	}
	if errs.Err() != nil {
		t.Errorf("Err() = %v, want nil", errs.Err())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *Snapshot)
		wantKeys []string
		contains map[string]string
	}{
		{
			name:     "missing template",
			mutate:   func(s *Snapshot) { s.Template = nil },
			wantKeys: []string{KeyTemplateImage},
		},
		{
			name: "no data loaded",
			mutate: func(s *Snapshot) {
				s.DataLoaded = false
				s.Dataset = ParseTabular("")
			},
			wantKeys: []string{KeyCSVData},
			contains: map[string]string{KeyCSVData: "No data"},
		},
		{
			name:     "loaded but no header row",
			mutate:   func(s *Snapshot) { s.Dataset = Dataset{Headers: []string{}, Rows: [][]string{}} },
			wantKeys: []string{KeyCSVData},
			contains: map[string]string{KeyCSVData: "no valid header row"},
		},
		{
			name:     "row length mismatch lists every line",
			mutate:   func(s *Snapshot) { s.Dataset = ParseTabular("id,nombre\n7\n8,Luis\n9,Eva,x") },
			wantKeys: []string{KeyCSVData},
			contains: map[string]string{KeyCSVData: "Rows 2, 4 "},
		},
		{
			name: "unknown placeholder in text field",
			mutate: func(s *Snapshot) {
				s.Layout.TextFields[0].Content = "{{nombre}} {{Puesto}}"
			},
			wantKeys: []string{TextFieldKey(1)},
			contains: map[string]string{TextFieldKey(1): "{{Puesto}}"},
		},
		{
			name: "last bad placeholder wins",
			mutate: func(s *Snapshot) {
				s.Layout.TextFields[0].Content = "{{foo}} {{bar}}"
			},
			wantKeys: []string{TextFieldKey(1)},
			contains: map[string]string{TextFieldKey(1): "{{bar}}"},
		},
		{
			name:     "unknown placeholder in filename pattern",
			mutate:   func(s *Snapshot) { s.Layout.FilenamePattern = "{{dni}}.png" },
			wantKeys: []string{KeyFilenamePattern},
			contains: map[string]string{KeyFilenamePattern: "{{dni}}"},
		},
		{
			name:     "image fields without photos",
			mutate:   func(s *Snapshot) { s.Photos = NewPhotoLibrary() },
			wantKeys: []string{KeyPhotoUpload},
		},
		{
			name:     "nil photo library counts as empty",
			mutate:   func(s *Snapshot) { s.Photos = nil },
			wantKeys: []string{KeyPhotoUpload},
		},
		{
			name:     "no link column",
			mutate:   func(s *Snapshot) { s.Layout.ImageFields[0].LinkColumn = "" },
			wantKeys: []string{ImageFieldKey(2)},
			contains: map[string]string{ImageFieldKey(2): "No column"},
		},
		{
			name:     "unknown link column lists headers",
			mutate:   func(s *Snapshot) { s.Layout.ImageFields[0].LinkColumn = "foto" },
			wantKeys: []string{ImageFieldKey(2)},
			contains: map[string]string{ImageFieldKey(2): "'foto'"},
		},
		{
			name: "placeholder and link checks skipped without headers",
			mutate: func(s *Snapshot) {
				s.DataLoaded = false
				s.Dataset = ParseTabular("")
				s.Layout.TextFields[0].Content = "{{nope}}"
				s.Layout.ImageFields[0].LinkColumn = "nope"
			},
			wantKeys: []string{KeyCSVData},
		},
		{
			name: "everything missing",
			mutate: func(s *Snapshot) {
				*s = Snapshot{Layout: s.Layout}
			},
			wantKeys: []string{KeyCSVData, KeyPhotoUpload, KeyTemplateImage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(&s)

			errs := Validate(s)
			if diff := cmp.Diff(tt.wantKeys, errs.Keys()); diff != "" {
				t.Fatalf("Validate() keys mismatch (-want +got):\n%s", diff)
			}
			for key, substr := range tt.contains {
				if !strings.Contains(errs[key].Message, substr) {
					t.Errorf("errs[%s].Message = %q, want it to contain %q", key, errs[key].Message, substr)
				}
			}
			for _, key := range tt.wantKeys {
				if errs[key].Suggestion == "" {
					t.Errorf("errs[%s] has no suggestion", key)
				}
			}
		})
	}
}

func TestValidate_UnknownLinkColumnSuggestsHeaders(t *testing.T) {
	s := validSnapshot()
	s.Layout.ImageFields[0].LinkColumn = "foto"

	got := Validate(s)[ImageFieldKey(2)].Suggestion
	if !strings.Contains(got, "id, nombre") {
		t.Errorf("Suggestion = %q, want the available headers", got)
	}
}

func TestValidationErrorSet_Err(t *testing.T) {
	s := validSnapshot()
	s.Template = nil

	err := Validate(s).Err()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Err() = %T, want *ConfigurationError", err)
	}
	if _, ok := cfgErr.Errors[KeyTemplateImage]; !ok {
		t.Errorf("ConfigurationError missing %s", KeyTemplateImage)
	}
	if !strings.Contains(err.Error(), KeyTemplateImage) {
		t.Errorf("Error() = %q, want it to name the key", err.Error())
	}
}
