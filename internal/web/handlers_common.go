package web

// handlers_common.go holds request parsing helpers shared by the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxUploadSize bounds request bodies when the config leaves it unset.
const DefaultMaxUploadSize = 64 << 20

// errMissingFile is returned when a multipart upload has no file part.
var errMissingFile = &core.IOError{Op: "read upload", Err: errors.New("no file in request")}

// maxUpload returns the configured body limit.
func (s *Server) maxUpload() int64 {
	if s.cfg.MaxUploadSize > 0 {
		return s.cfg.MaxUploadSize
	}
	return DefaultMaxUploadSize
}

// parseIntParam parses an integer query parameter with a default value.
// Negative values are accepted; callers clamp.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return i
}

// parseFloatParam parses a float query parameter with a default value.
func parseFloatParam(r *http.Request, name string, defaultVal float64) float64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// parseBoolParam reports whether a query flag is set ("1", "true", "on").
func parseBoolParam(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// fieldRef reads the {kind} and {id} URL parameters.
func fieldRef(r *http.Request) (core.FieldKind, int64, error) {
	kind := core.FieldKind(chi.URLParam(r, "kind"))
	if kind != core.KindText && kind != core.KindImage {
		return "", 0, fmt.Errorf("%w: unknown field kind %q", errFieldNotFound, kind)
	}
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		return kind, 0, nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid id %q", errFieldNotFound, idStr)
	}
	return kind, id, nil
}

// decodeJSON reads a JSON request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &core.IOError{Op: "decode request", Err: err}
	}
	return nil
}

// readBody returns the raw request body up to the upload limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &core.IOError{Op: "read request", Err: err}
	}
	return data, nil
}

// parseUpload parses a multipart form within the upload limit.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())
	if err := r.ParseMultipartForm(s.maxUpload()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &core.IOError{Op: "parse upload", Err: err}
	}
	return nil
}

// formFile opens the single file part named field.
func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, errMissingFile
	}
	if err != nil {
		return nil, nil, &core.IOError{Op: "read upload", Err: err}
	}
	return file, header, nil
}
