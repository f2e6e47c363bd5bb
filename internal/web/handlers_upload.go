package web

import (
	"io"
	"net/http"

	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/logging"
	"github.com/JonMunkholm/credgen/internal/workspace"
)

// UploadResponse is returned after a template or data upload.
type UploadResponse struct {
	Name   string           `json:"name"`
	Status workspace.Status `json:"status"`
}

// PhotosResponse is returned after a photo upload.
type PhotosResponse struct {
	Report  core.PhotoReport `json:"report"`
	Summary string           `json:"summary"`
	Status  workspace.Status `json:"status"`
}

// handleUploadTemplate installs the template image from the "file" part.
// A failed decode leaves the previous template in place.
func (s *Server) handleUploadTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	file, header, err := formFile(r, "file")
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	if err := s.session.LoadTemplate(file, header.Filename); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Name: header.Filename, Status: s.session.Status()})
}

// handleUploadData replaces the dataset with the "file" part.
func (s *Server) handleUploadData(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	file, header, err := formFile(r, "file")
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	if err := s.session.LoadData(file, header.Filename); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Name: header.Filename, Status: s.session.Status()})
}

// handleUploadPhotos replaces the photo library with the "files" parts.
// Non-image parts are skipped and reported.
func (s *Server) handleUploadPhotos(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.respondError(w, r, errMissingFile, statusFor(errMissingFile))
		return
	}

	files := make([]core.PhotoFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			err = &core.IOError{Op: "read photo", Path: fh.Filename, Err: err}
			s.respondError(w, r, err, statusFor(err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			err = &core.IOError{Op: "read photo", Path: fh.Filename, Err: err}
			s.respondError(w, r, err, statusFor(err))
			return
		}
		files = append(files, core.PhotoFile{Name: fh.Filename, Data: data})
	}

	report := s.session.LoadPhotoFiles(files)
	logging.FromContext(r.Context()).Debug("photo upload", "parts", len(files), "loaded", report.Loaded)

	writeJSON(w, http.StatusOK, PhotosResponse{
		Report:  report,
		Summary: report.String(),
		Status:  s.session.Status(),
	})
}
