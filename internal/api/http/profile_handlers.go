package http

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func GetProfileHandler(users *user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := authsvc.SubjectFromContext(r.Context())
		u, err := users.GetByID(r.Context(), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		p, err := users.GetProfile(r.Context(), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
			"role":  u.Role,
			"bio":   p.Bio,
			"phone": p.Phone,
		})
	}
}

func UpdateProfileHandler(users *user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req user.Profile
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		sub := authsvc.SubjectFromContext(r.Context())
		if err := users.UpsertProfile(r.Context(), sub, req); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Profile updated"})
	}
}

// ChangePasswordHandler requires the current password before accepting a
// new one, unlike the reset flow which authenticates by token.
func ChangePasswordHandler(users *user.Store, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.CurrentPassword == "" || len(req.NewPassword) < 8 {
			badRequest(w, "Current password and a new password of at least 8 characters required")
			return
		}
		sub := authsvc.SubjectFromContext(r.Context())
		u, err := users.GetByID(r.Context(), sub)
		if err != nil {
			writeErr(w, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)) != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Current password is incorrect"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := users.SetPassword(r.Context(), sub, string(hash)); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
	}
}
