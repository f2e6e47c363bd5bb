package web

// errors.go turns handler errors into responses.
//
// The technical error is logged with the request id; the client gets the
// core.MapError message as an HTML alert (form submissions from the page),
// JSON (API clients) or plain text.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/credgen/internal/batch"
	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/layout"
	"github.com/JonMunkholm/credgen/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

// errFieldNotFound is returned for edits of a field that does not exist.
var errFieldNotFound = errors.New("field not found")

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Action  string                  `json:"action,omitempty"`
	Code    string                  `json:"code"`
	Errors  core.ValidationErrorSet `json:"errors,omitempty"`
}

// statusFor picks the HTTP status of err.
func statusFor(err error) int {
	var (
		cfgErr   *core.ConfigurationError
		resErr   *core.ResourceError
		ioErr    *core.IOError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &cfgErr), errors.As(err, &resErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, batch.ErrTooManyBatches):
		return http.StatusTooManyRequests
	case errors.Is(err, layout.ErrInvalidDocument), errors.As(err, &ioErr):
		return http.StatusBadRequest
	case errors.Is(err, errFieldNotFound), errors.Is(err, layout.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoRows):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		resp := ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		}
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			resp.Errors = cfgErr.Errors
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(resp)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// renderErrorPartial writes an HTML alert fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isHTMX reports whether the request came from the page's fetch handler.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
