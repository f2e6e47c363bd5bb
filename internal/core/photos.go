package core

// photos.go holds the photo library: normalized key -> encoded bytes, plus a
// decode cache shared by every render that reads the same photo.
//
// Keys are the lower-cased, trimmed filename stem ("Ana.JPG" -> "ana"). When
// two files normalize to the same key the one later in lexical order wins
// and the collision is reported in the PhotoReport.

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	// Registered decoders for template and photo images.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/singleflight"
)

// PhotoLibrary maps normalized photo keys to encoded image bytes.
// It is safe for concurrent use. The zero value is not usable; use
// NewPhotoLibrary. A nil *PhotoLibrary behaves as an empty library for
// reads.
type PhotoLibrary struct {
	mu      sync.RWMutex
	photos  map[string][]byte
	decoded map[string]image.Image
	group   singleflight.Group
}

// NewPhotoLibrary creates an empty library.
func NewPhotoLibrary() *PhotoLibrary {
	return &PhotoLibrary{
		photos:  make(map[string][]byte),
		decoded: make(map[string]image.Image),
	}
}

// NormalizePhotoKey derives the library key of a filename: the base name
// without its last extension, trimmed and lower-cased. A name that is all
// extension (".png") keeps the whole name.
func NormalizePhotoKey(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return strings.ToLower(strings.TrimSpace(stem))
}

// Set stores data under the normalized form of key and reports whether an
// existing photo was replaced.
func (l *PhotoLibrary) Set(key string, data []byte) bool {
	key = LookupKey(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	_, replaced := l.photos[key]
	l.photos[key] = data
	delete(l.decoded, key)
	return replaced
}

// Get returns the encoded bytes stored under key.
func (l *PhotoLibrary) Get(key string) ([]byte, bool) {
	if l == nil {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, ok := l.photos[LookupKey(key)]
	return data, ok
}

// Has reports whether a photo is stored under key.
func (l *PhotoLibrary) Has(key string) bool {
	_, ok := l.Get(key)
	return ok
}

// Len returns the number of photos.
func (l *PhotoLibrary) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.photos)
}

// Keys returns all keys in sorted order.
func (l *PhotoLibrary) Keys() []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	keys := make([]string, 0, len(l.photos))
	for k := range l.photos {
		keys = append(keys, k)
	}
	l.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Clone returns an independent library with the same photos. Encoded bytes
// and decoded images are shared; neither is ever mutated.
func (l *PhotoLibrary) Clone() *PhotoLibrary {
	out := NewPhotoLibrary()
	if l == nil {
		return out
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for k, v := range l.photos {
		out.photos[k] = v
	}
	for k, v := range l.decoded {
		out.decoded[k] = v
	}
	return out
}

// Decode returns the decoded photo stored under key. ok is false when no
// photo is stored; a photo that fails to decode yields a *ResourceError.
// Concurrent calls for the same key share one decode.
func (l *PhotoLibrary) Decode(ctx context.Context, key string) (img image.Image, ok bool, err error) {
	if l == nil {
		return nil, false, nil
	}
	key = LookupKey(key)

	l.mu.RLock()
	data, ok := l.photos[key]
	cached := l.decoded[key]
	l.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if cached != nil {
		return cached, true, nil
	}

	ch := l.group.DoChan(key, func() (interface{}, error) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &ResourceError{Resource: "photo", Key: key, Err: err}
		}
		l.mu.Lock()
		if current, ok := l.photos[key]; ok && bytes.Equal(current, data) {
			l.decoded[key] = img
		}
		l.mu.Unlock()
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, true, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, true, res.Err
		}
		return res.Val.(image.Image), true, nil
	}
}

// DecodeTemplate decodes a template image. Failures are *ResourceError.
func DecodeTemplate(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &ResourceError{Resource: "template", Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &ResourceError{Resource: "template", Err: fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())}
	}
	return img, nil
}

// PhotoCollision records two files that normalized to the same key.
type PhotoCollision struct {
	Key      string `json:"key"`
	Kept     string `json:"kept"`
	Replaced string `json:"replaced"`
}

// PhotoReport summarizes a photo load.
type PhotoReport struct {
	Loaded     int              `json:"loaded"`
	Skipped    []string         `json:"skipped,omitempty"`
	Collisions []PhotoCollision `json:"collisions,omitempty"`
}

// String renders the report as a one-line status.
func (r PhotoReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d images loaded", r.Loaded)
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, ", %d skipped", len(r.Skipped))
	}
	if len(r.Collisions) > 0 {
		keys := make([]string, len(r.Collisions))
		for i, c := range r.Collisions {
			keys[i] = c.Key
		}
		fmt.Fprintf(&b, ", duplicate keys: %s", strings.Join(keys, ", "))
	}
	return b.String()
}

// LoadPhotoDir loads every image file directly inside dir. Subdirectories
// are ignored.
func LoadPhotoDir(dir string) (*PhotoLibrary, PhotoReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, PhotoReport{}, &IOError{Op: "read photo directory", Path: dir, Err: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return LoadPhotoFiles(paths)
}

// LoadPhotoFiles loads the given files into a new library. Any read
// failure aborts the load.
func LoadPhotoFiles(paths []string) (*PhotoLibrary, PhotoReport, error) {
	files := make([]PhotoFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, PhotoReport{}, &IOError{Op: "read photo", Path: path, Err: err}
		}
		files = append(files, PhotoFile{Name: filepath.Base(path), Data: data})
	}
	lib, report := BuildPhotoLibrary(files)
	return lib, report, nil
}

// PhotoFile is one uploaded or read photo.
type PhotoFile struct {
	Name string
	Data []byte
}

// BuildPhotoLibrary builds a library from files processed in lexical order
// of their base names. Non-image files and names without a stem ("  .png")
// are skipped and reported.
func BuildPhotoLibrary(files []PhotoFile) (*PhotoLibrary, PhotoReport) {
	sorted := append([]PhotoFile(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i].Name) < filepath.Base(sorted[j].Name)
	})

	lib := NewPhotoLibrary()
	var report PhotoReport
	source := make(map[string]string, len(sorted))

	for _, f := range sorted {
		name := filepath.Base(f.Name)
		if !IsImageContent(name, f.Data) {
			report.Skipped = append(report.Skipped, name)
			continue
		}

		key := NormalizePhotoKey(name)
		if key == "" {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if lib.Set(key, f.Data) {
			report.Collisions = append(report.Collisions, PhotoCollision{
				Key:      key,
				Kept:     name,
				Replaced: source[key],
			})
		}
		source[key] = name
	}

	report.Loaded = lib.Len()
	return lib, report
}

// IsImageContent reports whether data looks like an image, by content
// sniffing first and by the file extension second.
func IsImageContent(name string, data []byte) bool {
	if strings.HasPrefix(http.DetectContentType(data), "image/") {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(strings.ToLower(filepath.Ext(name))), "image/")
}
