package http

import (
	"encoding/json"
	"net/http"
	"strings"

	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/roster"
)

// BulkUploadHandler ingests a roster either as JSON {students, filename} or
// as a multipart form with a CSV file part named "file".
func BulkUploadHandler(svc *roster.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		facultyID := authsvc.SubjectFromContext(r.Context())

		var (
			rows     []roster.Row
			filename string
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			file, header, err := r.FormFile("file")
			if err != nil {
				badRequest(w, "CSV file required")
				return
			}
			defer file.Close()
			rows, err = roster.ParseCSV(file)
			if err != nil {
				writeErr(w, err)
				return
			}
			filename = header.Filename
		} else {
			var req struct {
				Students []roster.Row `json:"students"`
				Filename string       `json:"filename"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				badRequest(w, "bad json")
				return
			}
			rows = req.Students
			filename = req.Filename
		}
		if filename == "" {
			filename = "roster-upload"
		}

		rep, err := svc.BulkImport(r.Context(), facultyID, filename, rows)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func UploadHistoryHandler(audit *roster.AuditStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploads, err := audit.History(r.Context(), authsvc.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
	}
}
