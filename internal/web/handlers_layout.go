package web

// handlers_layout.go edits the layout. Every edit is applied to the session,
// which saves it, and answers with the recomputed validation result so the
// page can refresh its issue list without a second request.

import (
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/JonMunkholm/credgen/internal/web/templates"
)

// FieldResponse is returned after a field edit.
type FieldResponse struct {
	Field  core.Field              `json:"field"`
	Errors core.ValidationErrorSet `json:"errors"`
}

// LayoutResponse is returned after a layout replacement.
type LayoutResponse struct {
	Layout core.Layout             `json:"layout"`
	Errors core.ValidationErrorSet `json:"errors"`
}

// handleStatus reports the session state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

// handleValidation returns the validation panel: HTML for the page,
// the error set as JSON otherwise.
func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	errs := s.session.Validate()
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.Issues(issuesFrom(errs)).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, errs)
}

// handleGetLayout downloads the layout document.
func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	data, err := layout.Export(s.session.Layout())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="layout.json"`)
	w.Write(data)
}

// handlePutLayout replaces the layout with an imported JSON or YAML
// document, sent as the body or as the "file" part of a form.
func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		data, err = s.readFormFile(w, r, "file")
	} else {
		data, err = s.readBody(w, r)
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	l, err := layout.Import(data)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.session.ReplaceLayout(r.Context(), l)
	writeJSON(w, http.StatusOK, LayoutResponse{Layout: s.session.Layout(), Errors: s.session.Validate()})
}

// handleFilenamePattern sets the filename pattern from {"pattern": "..."}.
func (s *Server) handleFilenamePattern(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pattern string `json:"pattern"`
	}
	if err := s.decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.session.SetFilenamePattern(r.Context(), body.Pattern)
	writeJSON(w, http.StatusOK, LayoutResponse{Layout: s.session.Layout(), Errors: s.session.Validate()})
}

// handleAddField appends a field of {kind} with authoring defaults.
func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	kind, _, err := fieldRef(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var f core.Field
	if kind == core.KindText {
		f = s.session.AddTextField(r.Context())
	} else {
		f = s.session.AddImageField(r.Context())
	}
	writeJSON(w, http.StatusCreated, FieldResponse{Field: f, Errors: s.session.Validate()})
}

// handlePutField replaces field {kind}/{id} with the JSON body. The ID in
// the path wins over one in the body.
func (s *Server) handlePutField(w http.ResponseWriter, r *http.Request) {
	kind, id, err := fieldRef(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var f core.Field
	switch kind {
	case core.KindText:
		var tf core.TextField
		err = s.decodeJSON(w, r, &tf)
		tf.ID = id
		f = tf
	case core.KindImage:
		var imf core.ImageField
		err = s.decodeJSON(w, r, &imf)
		imf.ID = id
		f = imf
	}
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if err := s.session.PutField(r.Context(), f); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, FieldResponse{Field: f, Errors: s.session.Validate()})
}

// handleDeleteField removes field {kind}/{id}.
func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	kind, id, err := fieldRef(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if !s.session.RemoveField(r.Context(), kind, id) {
		s.respondError(w, r, errFieldNotFound, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readFormFile returns the contents of one uploaded form file.
func (s *Server) readFormFile(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	if err := s.parseUpload(w, r); err != nil {
		return nil, err
	}
	file, header, err := formFile(r, field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &core.IOError{Op: "read upload", Path: header.Filename, Err: err}
	}
	return data, nil
}
