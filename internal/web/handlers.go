package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/preview"
	"github.com/JonMunkholm/credgen/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// handleIndex renders the editor page. ?row selects the preview row and
// ?grid=1 overlays the alignment grid.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	row := s.session.PreviewRow()
	if r.URL.Query().Has("row") {
		row = s.session.SetPreviewRow(parseIntParam(r, "row", row))
	}

	st := s.session.Status()
	data := templates.PageData{
		TemplateName: st.TemplateName,
		DataName:     st.DataName,
		Rows:         st.Rows,
		Photos:       st.Photos,
		Row:          row,
		DisplayWidth: s.cfg.DisplayWidth,
		Issues:       issuesFrom(st.Errors),
		SaveError:    st.SaveError,
		Preview:      s.sceneView(row, parseBoolParam(r, "grid")),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(data).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handlePreviewFragment renders only the projected credential.
func (s *Server) handlePreviewFragment(w http.ResponseWriter, r *http.Request) {
	row := s.session.PreviewRow()
	if r.URL.Query().Has("row") {
		row = parseIntParam(r, "row", row)
	}

	view := s.sceneView(row, parseBoolParam(r, "grid"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if view == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := view.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// sceneView projects row at the configured display width, or nil when no
// template is loaded. Images are served from /assets.
func (s *Server) sceneView(row int, grid bool) templ.Component {
	scene, ok := preview.ProjectRow(s.session.Snapshot(), row, float64(s.cfg.DisplayWidth))
	if !ok {
		return nil
	}
	return preview.SceneView(scene, preview.ViewOptions{
		TemplateSrc: "/assets/template",
		PhotoSrc:    func(key string) string { return "/assets/photos/" + url.PathEscape(key) },
		Grid:        grid,
	})
}

// handleTemplateAsset serves the loaded template image.
func (s *Server) handleTemplateAsset(w http.ResponseWriter, r *http.Request) {
	data, contentType := s.session.Template()
	if data == nil {
		http.NotFound(w, r)
		return
	}
	writeAsset(w, data, contentType)
}

// handlePhotoAsset serves one photo by its library key.
func (s *Server) handlePhotoAsset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	data, contentType, ok := s.session.Photo(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeAsset(w, data, contentType)
}

func writeAsset(w http.ResponseWriter, data []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// issuesFrom converts validation errors for display, ordered by key.
func issuesFrom(errs core.ValidationErrorSet) []templates.Issue {
	issues := make([]templates.Issue, 0, len(errs))
	for key, e := range errs {
		issues = append(issues, templates.Issue{Key: key, Message: e.Message, Suggestion: e.Suggestion})
	}
	templates.SortIssues(issues)
	return issues
}
