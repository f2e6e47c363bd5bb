// Package workspace holds the mutable authoring state: the template, the
// dataset, the photo library, the field layout and the preview row.
//
// Every load replaces its part of the state wholesale and only after the
// new input was read and decoded successfully, so a failed load leaves the
// session exactly as it was. Readers never see the live state: Snapshot
// returns a deep copy taken under the read lock. Layout changes are saved
// to the configured store after every mutation.
package workspace

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/JonMunkholm/credgen/internal/preview"
	"github.com/JonMunkholm/credgen/internal/sheet"
)

// Session is safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	template     image.Image
	templateData []byte
	templateName string

	dataName   string
	dataLoaded bool
	dataset    core.Dataset

	photos     *core.PhotoLibrary
	photoCount int

	layout     core.Layout
	previewRow int

	editMu  sync.Mutex
	store   layout.Store
	saveErr error
}

// New creates a session editing l. A nil store disables auto-save.
func New(l core.Layout, store layout.Store) *Session {
	return &Session{
		layout: l.Clone(),
		photos: core.NewPhotoLibrary(),
		store:  store,
	}
}

// Open creates a session with the layout saved in store, or the default
// layout when nothing is saved.
func Open(ctx context.Context, store layout.Store) (*Session, error) {
	l, err := layout.LoadOrDefault(ctx, store)
	if err != nil {
		return nil, err
	}
	return New(l, store), nil
}

// LoadTemplate decodes and installs the background template.
func (s *Session) LoadTemplate(r io.Reader, name string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return &core.IOError{Op: "read template", Path: name, Err: err}
	}
	img, err := core.DecodeTemplate(bytes.NewReader(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.template = img
	s.templateData = data
	s.templateName = name
	s.mu.Unlock()

	slog.Info("template loaded", "name", name, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return nil
}

// LoadData reads a delimited text file or, for workbook names, the first
// worksheet of a spreadsheet. The preview row is clamped to the new data.
func (s *Session) LoadData(r io.Reader, name string) error {
	var (
		ds     core.Dataset
		loaded bool
	)
	if sheet.IsSpreadsheet(name) {
		var err error
		if ds, err = sheet.Read(r, name); err != nil {
			return err
		}
		loaded = len(ds.Headers) > 0 || len(ds.Rows) > 0
	} else {
		text, err := core.ReadTabularText(r, name)
		if err != nil {
			return err
		}
		ds = core.ParseTabular(text)
		loaded = !core.IsBlank(text)
	}

	s.mu.Lock()
	s.dataset = ds
	s.dataLoaded = loaded
	s.dataName = name
	s.previewRow = preview.ClampRow(s.previewRow, len(ds.Rows))
	s.mu.Unlock()

	slog.Info("data loaded", "name", name, "headers", len(ds.Headers), "rows", len(ds.Rows))
	return nil
}

// LoadPhotoDir replaces the photo library with the images in dir.
func (s *Session) LoadPhotoDir(dir string) (core.PhotoReport, error) {
	lib, report, err := core.LoadPhotoDir(dir)
	if err != nil {
		return core.PhotoReport{}, err
	}
	s.setPhotos(lib, report)
	return report, nil
}

// LoadPhotoFiles replaces the photo library with the given files.
func (s *Session) LoadPhotoFiles(files []core.PhotoFile) core.PhotoReport {
	lib, report := core.BuildPhotoLibrary(files)
	s.setPhotos(lib, report)
	return report
}

func (s *Session) setPhotos(lib *core.PhotoLibrary, report core.PhotoReport) {
	s.mu.Lock()
	s.photos = lib
	s.photoCount = lib.Len()
	s.mu.Unlock()

	slog.Info("photos loaded", "loaded", report.Loaded, "skipped", len(report.Skipped), "collisions", len(report.Collisions))
}

// Layout returns a copy of the current layout.
func (s *Session) Layout() core.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout.Clone()
}

// ReplaceLayout installs l wholesale, as after an import.
func (s *Session) ReplaceLayout(ctx context.Context, l core.Layout) {
	s.mutate(ctx, func(cur *core.Layout) error {
		*cur = l.Clone()
		return nil
	})
}

// PutField replaces the field with the same kind and ID, or appends it.
func (s *Session) PutField(ctx context.Context, f core.Field) error {
	return s.mutate(ctx, func(l *core.Layout) error { return l.Put(f) })
}

// RemoveField deletes a field and reports whether it existed.
func (s *Session) RemoveField(ctx context.Context, kind core.FieldKind, id int64) bool {
	var removed bool
	s.mutate(ctx, func(l *core.Layout) error {
		removed = l.Remove(kind, id)
		return nil
	})
	return removed
}

// AddTextField appends a text field with authoring defaults.
func (s *Session) AddTextField(ctx context.Context) core.TextField {
	var f core.TextField
	s.mutate(ctx, func(l *core.Layout) error {
		f = l.NewTextField()
		return nil
	})
	return f
}

// AddImageField appends an image field linked to the first header.
func (s *Session) AddImageField(ctx context.Context) core.ImageField {
	var f core.ImageField
	s.mutate(ctx, func(l *core.Layout) error {
		s.mu.RLock()
		headers := s.dataset.Headers
		s.mu.RUnlock()
		f = l.NewImageField(headers)
		return nil
	})
	return f
}

// SetFilenamePattern replaces the filename pattern.
func (s *Session) SetFilenamePattern(ctx context.Context, pattern string) {
	s.mutate(ctx, func(l *core.Layout) error {
		l.FilenamePattern = pattern
		return nil
	})
}

// mutate applies change to a copy of the layout, installs the copy, and
// saves it. A failed change leaves the layout untouched. Save failures are
// logged and reported by Status; the edit itself is kept.
func (s *Session) mutate(ctx context.Context, change func(*core.Layout) error) error {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.mu.RLock()
	next := s.layout.Clone()
	s.mu.RUnlock()

	if err := change(&next); err != nil {
		return err
	}

	s.mu.Lock()
	s.layout = next
	s.mu.Unlock()

	s.save(ctx)
	return nil
}

// save writes the current layout. Callers hold editMu, so saves happen in
// mutation order.
func (s *Session) save(ctx context.Context) {
	if s.store == nil {
		return
	}
	err := s.store.Save(ctx, s.Layout())
	if err != nil {
		slog.Warn("layout auto-save failed", "error", err)
	}

	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// Snapshot returns a deep copy of everything a render reads.
func (s *Session) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds := core.Dataset{
		Headers: append([]string(nil), s.dataset.Headers...),
		Rows:    make([][]string, len(s.dataset.Rows)),
	}
	for i, r := range s.dataset.Rows {
		ds.Rows[i] = append([]string(nil), r...)
	}

	return core.Snapshot{
		Template:   s.template,
		DataLoaded: s.dataLoaded,
		Dataset:    ds,
		Layout:     s.layout.Clone(),
		Photos:     s.photos.Clone(),
	}
}

// Validate checks the current state.
func (s *Session) Validate() core.ValidationErrorSet {
	return core.Validate(s.Snapshot())
}

// Template returns the encoded template and its content type, or nil when
// no template is loaded.
func (s *Session) Template() ([]byte, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.templateData == nil {
		return nil, ""
	}
	return s.templateData, http.DetectContentType(s.templateData)
}

// TemplateSize returns the native size of the loaded template.
func (s *Session) TemplateSize() (w, h int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.template == nil {
		return 0, 0, false
	}
	b := s.template.Bounds()
	return b.Dx(), b.Dy(), true
}

// Photo returns the encoded photo stored under key.
func (s *Session) Photo(key string) ([]byte, string, bool) {
	s.mu.RLock()
	lib := s.photos
	s.mu.RUnlock()

	data, ok := lib.Get(key)
	if !ok {
		return nil, "", false
	}
	return data, http.DetectContentType(data), true
}

// SetPreviewRow moves the preview to row i, clamped to the dataset, and
// returns the row actually selected.
func (s *Session) SetPreviewRow(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewRow = preview.ClampRow(i, len(s.dataset.Rows))
	return s.previewRow
}

// PreviewRow returns the selected preview row.
func (s *Session) PreviewRow() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previewRow
}

// Status summarizes the session for display.
type Status struct {
	TemplateName   string                  `json:"templateName,omitempty"`
	TemplateWidth  int                     `json:"templateWidth"`
	TemplateHeight int                     `json:"templateHeight"`
	DataName       string                  `json:"dataName,omitempty"`
	Headers        []string                `json:"headers"`
	Rows           int                     `json:"rows"`
	Photos         int                     `json:"photos"`
	PreviewRow     int                     `json:"previewRow"`
	SaveError      string                  `json:"saveError,omitempty"`
	Errors         core.ValidationErrorSet `json:"errors"`
}

// Status reports the current state and its validation result.
func (s *Session) Status() Status {
	snap := s.Snapshot()

	s.mu.RLock()
	st := Status{
		TemplateName: s.templateName,
		DataName:     s.dataName,
		Headers:      snap.Dataset.Headers,
		Rows:         len(snap.Dataset.Rows),
		Photos:       s.photoCount,
		PreviewRow:   s.previewRow,
	}
	if s.saveErr != nil {
		st.SaveError = s.saveErr.Error()
	}
	s.mu.RUnlock()

	if snap.Template != nil {
		st.TemplateWidth = snap.Template.Bounds().Dx()
		st.TemplateHeight = snap.Template.Bounds().Dy()
	}
	st.Errors = core.Validate(snap)
	return st
}
