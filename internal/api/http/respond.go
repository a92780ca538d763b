package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
)

type errorBody struct {
	Error   string             `json:"error"`
	Invalid []apperr.ItemError `json:"invalid,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto status codes. Wrapped causes stay in
// the server log; clients only ever see the taxonomy message.
func writeErr(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		slog.Error("unclassified request failure", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	status := statusFor(e.Kind)
	if status >= 500 {
		slog.Error("request failed", "kind", e.Kind, "err", err)
	}
	writeJSON(w, status, errorBody{Error: e.Message, Invalid: e.Invalid})
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		// Configuration, Upstream and Internal all surface as 500; the
		// distinction matters for logs, not clients.
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// urlID parses a chi URL parameter as a positive integer id.
func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
