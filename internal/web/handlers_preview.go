package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/preview"
	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/go-chi/chi/v5"
)

// errNoTemplate is returned by preview endpoints before a template is loaded.
var errNoTemplate = &core.ResourceError{Resource: "template", Err: errors.New("no template loaded")}

// CoordsResponse is a position in template pixels.
type CoordsResponse struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// handlePreviewRow selects the preview row from {"row": n}. The row is
// clamped to the dataset.
func (s *Server) handlePreviewRow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Row int `json:"row"`
	}
	if err := s.decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	row := s.session.SetPreviewRow(body.Row)
	writeJSON(w, http.StatusOK, map[string]int{"row": row})
}

// handleCoords maps a pointer position on the displayed preview (x, y at
// display width) to template pixels.
func (s *Server) handleCoords(w http.ResponseWriter, r *http.Request) {
	nativeW, _, ok := s.session.TemplateSize()
	if !ok {
		s.respondError(w, r, errNoTemplate, statusFor(errNoTemplate))
		return
	}

	width := parseFloatParam(r, "width", float64(s.cfg.DisplayWidth))
	scene := preview.Scene{Scale: preview.ScaleFor(width, float64(nativeW))}
	x, y := scene.ToTemplate(parseFloatParam(r, "x", 0), parseFloatParam(r, "y", 0))
	writeJSON(w, http.StatusOK, CoordsResponse{X: x, Y: y})
}

// handleRenderRow composites one row at full resolution and returns the
// PNG the batch would write for it. Validation is not enforced here.
func (s *Server) handleRenderRow(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || i < 0 {
		http.NotFound(w, r)
		return
	}

	snap := s.session.Snapshot()
	if snap.Template == nil {
		s.respondError(w, r, errNoTemplate, statusFor(errNoTemplate))
		return
	}
	if len(snap.Dataset.Rows) == 0 {
		s.respondError(w, r, core.ErrNoRows, statusFor(core.ErrNoRows))
		return
	}
	if i >= len(snap.Dataset.Rows) {
		http.NotFound(w, r)
		return
	}

	img, err := s.engine.RenderRow(r.Context(), snap.Template, snap.Layout, snap.Photos, snap.Dataset.Headers, snap.Dataset.Rows[i])
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeAsset(w, buf.Bytes(), "image/png")
}

// handleSnapshot screenshots the projected preview in headless Chrome.
// ?row and ?grid behave as on the page.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	row := parseIntParam(r, "row", s.session.PreviewRow())
	scene, ok := preview.ProjectRow(snap, row, float64(s.cfg.DisplayWidth))
	if !ok {
		s.respondError(w, r, errNoTemplate, statusFor(errNoTemplate))
		return
	}

	tmplData, tmplType := s.session.Template()
	view := preview.ViewOptions{
		TemplateSrc: preview.DataURI(tmplType, tmplData),
		PhotoSrc: func(key string) string {
			data, contentType, ok := s.session.Photo(key)
			if !ok {
				return ""
			}
			return preview.DataURI(contentType, data)
		},
		Grid: parseBoolParam(r, "grid"),
	}

	shot, err := preview.Snapshot(r.Context(), scene, view, s.snapOpts)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeAsset(w, shot, "image/png")
}
