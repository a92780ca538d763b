package http

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func ListFacultyHandler(users *user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		faculty, err := users.ListByRole(r.Context(), user.RoleFaculty)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, faculty)
	}
}

func CreateFacultyHandler(users *user.Store, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
			badRequest(w, "Name, email and a password of at least 8 characters required")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeErr(w, err)
			return
		}
		u, err := users.Create(r.Context(), req.Email, string(hash), req.Name, user.RoleFaculty, false)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

// DeleteFacultyHandler removes a faculty account. The role is part of the
// delete predicate so an admin cannot remove students or other admins here.
func DeleteFacultyHandler(users *user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "facultyID")
		if !ok {
			badRequest(w, "Invalid faculty id")
			return
		}
		if err := users.Delete(r.Context(), id, user.RoleFaculty); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Faculty deleted"})
	}
}
