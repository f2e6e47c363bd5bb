package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/credgen/internal/batch"
	"github.com/JonMunkholm/credgen/internal/config"
	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/render"
	"github.com/JonMunkholm/credgen/internal/workspace"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const testCSV = "id,nombre\n1,Ana\n2,Luis\n"

func testTemplate(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 20, G: 40, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// textOnlyLayout renders without photos.
func textOnlyLayout() core.Layout {
	return core.Layout{
		TextFields:      []core.TextField{{ID: 1, Content: "{{nombre}}", X: 10, Y: 10, FontSize: 12, Color: "#FFFFFF"}},
		FilenamePattern: "cred-{{id}}.png",
	}
}

func newTestServer(t *testing.T, l core.Layout) (*Server, string) {
	t.Helper()
	out := t.TempDir()
	s := NewServer(Deps{
		Session:         workspace.New(l, nil),
		Engine:          render.NewEngine(render.Options{}),
		Limiter:         batch.NewLimiter(1, 10*time.Millisecond),
		Batch:           batch.Options{Workers: 2},
		OutputDir:       out,
		Config:          config.ServerConfig{DisplayWidth: 400},
		AllowedNetworks: []string{},
	})
	return s, out
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, s *Server, path, field string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, files)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// loadInputs uploads an 800x400 template and testCSV.
func loadInputs(t *testing.T, s *Server) {
	t.Helper()
	if rec := upload(t, s, "/api/template", "file", map[string][]byte{"plantilla.png": testTemplate(t, 800, 400)}); rec.Code != http.StatusOK {
		t.Fatalf("template upload: %d %s", rec.Code, rec.Body.String())
	}
	if rec := upload(t, s, "/api/data", "file", map[string][]byte{"datos.csv": []byte(testCSV)}); rec.Code != http.StatusOK {
		t.Fatalf("data upload: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAllowNetworks(t *testing.T) {
	s := NewServer(Deps{
		Session: workspace.New(textOnlyLayout(), nil),
		Engine:  render.NewEngine(render.Options{}),
	})

	tests := []struct {
		remote string
		want   int
	}{
		{"127.0.0.1:50000", http.StatusOK},
		{"[::1]:50000", http.StatusOK},
		{"192.0.2.10:50000", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.remote, rec.Code, tt.want)
		}
	}
}

func TestUploads(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	st := decode[workspace.Status](t, do(s, http.MethodGet, "/api/status", ""))
	if st.TemplateName != "plantilla.png" || st.TemplateWidth != 800 || st.TemplateHeight != 400 {
		t.Errorf("template status = %+v", st)
	}
	if diff := cmp.Diff([]string{"id", "nombre"}, st.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if st.Rows != 2 {
		t.Errorf("Rows = %d, want 2", st.Rows)
	}
	if len(st.Errors) != 0 {
		t.Errorf("Errors = %v, want none", st.Errors)
	}
}

func TestUploadTemplate_Invalid(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	rec := upload(t, s, "/api/template", "file", map[string][]byte{"notas.txt": []byte("not an image")})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code == "" || resp.Message == "" {
		t.Errorf("error response = %+v", resp)
	}

	// The previous template stays loaded.
	st := decode[workspace.Status](t, do(s, http.MethodGet, "/api/status", ""))
	if st.TemplateName != "plantilla.png" {
		t.Errorf("TemplateName = %q, want plantilla.png", st.TemplateName)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	rec := upload(t, s, "/api/data", "other", map[string][]byte{"datos.csv": []byte(testCSV)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadPhotos(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	photo := testTemplate(t, 4, 4)

	rec := upload(t, s, "/api/photos", "files", map[string][]byte{
		"1.png":    photo,
		"LEEME.md": []byte("# notes"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[PhotosResponse](t, rec)
	if resp.Report.Loaded != 1 || len(resp.Report.Skipped) != 1 {
		t.Errorf("report = %+v", resp.Report)
	}

	asset := do(s, http.MethodGet, "/assets/photos/1", "")
	if asset.Code != http.StatusOK || asset.Header().Get("Content-Type") != "image/png" {
		t.Errorf("photo asset: %d %q", asset.Code, asset.Header().Get("Content-Type"))
	}
	if rec := do(s, http.MethodGet, "/assets/photos/2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing photo: status = %d, want 404", rec.Code)
	}
}

func TestFieldEdits(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	rec := do(s, http.MethodPost, "/api/fields/text", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status = %d", rec.Code)
	}
	added := decode[struct {
		Field core.TextField `json:"field"`
	}](t, rec)
	if added.Field.ID != 2 {
		t.Fatalf("added ID = %d, want 2", added.Field.ID)
	}

	// An unknown placeholder is reported under the field's key.
	rec = do(s, http.MethodPut, "/api/fields/text/2", `{"id": 99, "content": "{{cargo}}", "x": 5, "y": 5, "fontSize": 10, "color": "#000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status = %d: %s", rec.Code, rec.Body.String())
	}
	put := decode[struct {
		Field  core.TextField          `json:"field"`
		Errors core.ValidationErrorSet `json:"errors"`
	}](t, rec)
	if put.Field.ID != 2 {
		t.Errorf("put ID = %d, want path ID 2", put.Field.ID)
	}
	if _, ok := put.Errors[core.TextFieldKey(2)]; !ok {
		t.Errorf("errors = %v, want %s", put.Errors, core.TextFieldKey(2))
	}

	if rec := do(s, http.MethodDelete, "/api/fields/text/2", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", rec.Code)
	}
	if rec := do(s, http.MethodDelete, "/api/fields/text/2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/api/fields/shape", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown kind: status = %d, want 404", rec.Code)
	}

	if diff := cmp.Diff(textOnlyLayout(), s.session.Layout(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutImportExport(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())

	rec := do(s, http.MethodGet, "/api/layout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status = %d", rec.Code)
	}
	exported := rec.Body.String()

	yamlDoc := "textFields: []\nimageFields: []\nfilenamePattern: \"{{id}}.png\"\n"
	rec = do(s, http.MethodPut, "/api/layout", yamlDoc)
	if rec.Code != http.StatusOK {
		t.Fatalf("import yaml: status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.session.Layout().FilenamePattern; got != "{{id}}.png" {
		t.Errorf("FilenamePattern = %q", got)
	}

	if rec := do(s, http.MethodPut, "/api/layout", `{"textFields": []}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid document: status = %d, want 400", rec.Code)
	}

	if rec := do(s, http.MethodPut, "/api/layout", exported); rec.Code != http.StatusOK {
		t.Fatalf("re-import: status = %d", rec.Code)
	}
	if diff := cmp.Diff(textOnlyLayout(), s.session.Layout(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFilenamePattern(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	rec := do(s, http.MethodPut, "/api/filename-pattern", `{"pattern": "{{apellido}}.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[LayoutResponse](t, rec)
	if _, ok := resp.Errors[core.KeyFilenamePattern]; !ok {
		t.Errorf("errors = %v, want %s", resp.Errors, core.KeyFilenamePattern)
	}
}

func TestPreviewRowAndCoords(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())

	if rec := do(s, http.MethodGet, "/api/coords?x=10&y=10", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("coords without template: status = %d, want 422", rec.Code)
	}

	loadInputs(t, s)

	got := decode[map[string]int](t, do(s, http.MethodPost, "/api/preview/row", `{"row": 7}`))
	if got["row"] != 1 {
		t.Errorf("row = %d, want clamped 1", got["row"])
	}

	// 800px template shown at 400px: scale 0.5.
	coords := decode[CoordsResponse](t, do(s, http.MethodGet, "/api/coords?x=20&y=10.4", ""))
	if diff := cmp.Diff(CoordsResponse{X: 40, Y: 21}, coords); diff != "" {
		t.Errorf("coords mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexAndPreview(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())

	rec := do(s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Load a template image") {
		t.Error("index without template should prompt for one")
	}
	if rec := do(s, http.MethodGet, "/preview", ""); rec.Code != http.StatusNoContent {
		t.Errorf("preview without template: status = %d, want 204", rec.Code)
	}

	loadInputs(t, s)

	rec = do(s, http.MethodGet, "/?row=1&grid=1", "")
	body := rec.Body.String()
	for _, want := range []string{`id="credential"`, "Luis", "/assets/template"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if s.session.PreviewRow() != 1 {
		t.Errorf("PreviewRow = %d, want 1", s.session.PreviewRow())
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRenderRow(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	rec := do(s, http.MethodGet, "/api/render/0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 400 {
		t.Errorf("size = %v, want 800x400", b)
	}

	if rec := do(s, http.MethodGet, "/api/render/5", ""); rec.Code != http.StatusNotFound {
		t.Errorf("out of range: status = %d, want 404", rec.Code)
	}
}

func TestGenerate_Refused(t *testing.T) {
	s, out := newTestServer(t, textOnlyLayout())

	rec := do(s, http.MethodPost, "/api/generate?wait=1", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	for _, key := range []string{core.KeyTemplateImage, core.KeyCSVData} {
		if _, ok := resp.Errors[key]; !ok {
			t.Errorf("errors missing %s: %v", key, resp.Errors)
		}
	}

	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("refused batch wrote %d files", len(entries))
	}
	if s.limiter.Active() != 0 {
		t.Error("refused batch holds a limiter slot")
	}
}

func TestGenerate_Wait(t *testing.T) {
	s, out := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	rec := do(s, http.MethodPost, "/api/generate?wait=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	st := decode[BatchStatus](t, rec)
	if st.Running || st.Progress.Phase != batch.PhaseComplete {
		t.Errorf("status = %+v, want complete", st)
	}

	want := []string{filepath.Join(out, "cred-1.png"), filepath.Join(out, "cred-2.png")}
	if diff := cmp.Diff(want, st.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	for _, p := range want {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("stat %s: %v", p, err)
		}
	}

	polled := decode[BatchStatus](t, do(s, http.MethodGet, "/api/batch/status", ""))
	if polled.Progress.Written != 2 || polled.Limiter.Active != 0 {
		t.Errorf("polled status = %+v", polled)
	}
}

func TestGenerate_Busy(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())
	loadInputs(t, s)

	if !s.limiter.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer s.limiter.Release()

	rec := do(s, http.MethodPost, "/api/generate", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestRespondError_Formats(t *testing.T) {
	s, _ := newTestServer(t, textOnlyLayout())

	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want html", ct)
	}
	if !strings.Contains(rec.Body.String(), `class="alert alert-error"`) {
		t.Errorf("body = %q, want alert", rec.Body.String())
	}
}
