package http

import (
	"encoding/json"
	"net/http"

	"github.com/sciencelab/sciencelab-lms/internal/quiz"
	"github.com/sciencelab/sciencelab-lms/internal/roster"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func ListStudentsHandler(users *user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := users.ListByRole(r.Context(), user.RoleStudent)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, students)
	}
}

// CreateStudentHandler provisions a single account with a forced password
// change. The raw reset token is only echoed back when the debug flag is on;
// in normal operation it leaves the server through the invite email path.
func CreateStudentHandler(svc *roster.Service, exposeResetToken bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		inv, err := svc.ProvisionStudent(r.Context(), req.Name, req.Email)
		if err != nil {
			writeErr(w, err)
			return
		}
		resp := map[string]any{
			"user_id":    inv.UserID,
			"email":      inv.Email,
			"expires_at": inv.ExpiresAt,
		}
		if exposeResetToken {
			resp["reset_token"] = inv.RawToken
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func StudentProgressHandler(users *user.Store, quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "studentID")
		if !ok {
			badRequest(w, "Invalid student id")
			return
		}
		u, err := users.GetByID(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		attempts, err := quizzes.ListStudentAttempts(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"student": map[string]any{
				"id":    u.ID,
				"name":  u.Name,
				"email": u.Email,
			},
			"attempts": attempts,
		})
	}
}
