package batch

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/credgen/internal/core"
)

// WriteDir writes creds into dir, creating it if needed, and returns the
// written paths in credential order. Filenames are sanitized to a single
// path element; names that collide (case-insensitively) get a -2, -3, ...
// suffix. onWrite, when set, is called with the running count.
func WriteDir(dir string, creds []Credential, onWrite func(written int)) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &core.IOError{Op: "create output directory", Path: dir, Err: err}
	}

	names := UniqueNames(creds)
	paths := make([]string, 0, len(creds))
	for i, c := range creds {
		path := filepath.Join(dir, names[i])
		if err := os.WriteFile(path, c.Image, 0o644); err != nil {
			return paths, &core.IOError{Op: "write credential", Path: path, Err: err}
		}
		paths = append(paths, path)
		if onWrite != nil {
			onWrite(len(paths))
		}
	}
	return paths, nil
}

// UniqueNames returns a sanitized, collision-free filename per credential.
func UniqueNames(creds []Credential) []string {
	seen := make(map[string]bool, len(creds))
	names := make([]string, len(creds))
	for i, c := range creds {
		name := SanitizeFilename(c.Filename)
		if name == "" {
			name = Filename("", nil, nil, c.Row)
		}

		stem, ext := splitExt(name)
		candidate := name
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			candidate = stem + "-" + strconv.Itoa(n) + ext
		}
		seen[strings.ToLower(candidate)] = true
		names[i] = candidate
	}
	return names
}

// SanitizeFilename reduces name to one safe path element. Separators,
// reserved characters and control characters become '_'; a name without
// an extension gets ".png".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	clean := strings.Trim(b.String(), ". ")
	if clean == "" {
		return ""
	}
	if filepath.Ext(clean) == "" {
		clean += ".png"
	}
	return clean
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}
