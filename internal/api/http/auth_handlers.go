package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

type sessionResponse struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

func SignupHandler(users *user.Store, tokens *authsvc.TokenService, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
			badRequest(w, "Missing required fields")
			return
		}
		if !user.ValidRole(req.Role) {
			badRequest(w, "Invalid role")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeErr(w, err)
			return
		}
		u, err := users.Create(r.Context(), req.Email, string(hash), req.Name, req.Role, false)
		if err != nil {
			writeErr(w, err)
			return
		}
		token, err := tokens.Issue(u.ID, u.Role)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse{User: u, Token: token})
	}
}

func LoginHandler(users *user.Store, tokens *authsvc.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.Email == "" || req.Password == "" {
			badRequest(w, "Email and password required")
			return
		}
		u, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			slog.Info("login rejected", "email", req.Email)
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid credentials"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			slog.Info("login rejected", "email", req.Email)
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid credentials"})
			return
		}
		token, err := tokens.Issue(u.ID, u.Role)
		if err != nil {
			writeErr(w, err)
			return
		}
		slog.Info("login", "email", u.Email, "role", u.Role)
		writeJSON(w, http.StatusOK, sessionResponse{User: u, Token: token})
	}
}

// ResetPasswordHandler redeems a single-use reset token issued during
// student provisioning.
func ResetPasswordHandler(users *user.Store, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.Token == "" || len(req.NewPassword) < 8 {
			badRequest(w, "Invalid token or password too short")
			return
		}

		tokenHash := authsvc.HashResetToken(req.Token)
		pr, err := users.GetActiveReset(r.Context(), tokenHash)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !authsvc.ResetTokenEqual(pr.TokenHash, tokenHash) {
			badRequest(w, "invalid or expired token")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := users.SetPassword(r.Context(), pr.UserID, string(hash)); err != nil {
			writeErr(w, err)
			return
		}
		if err := users.MarkResetUsed(r.Context(), pr.ID); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
	}
}

func MeHandler(users *user.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.GetByID(r.Context(), authsvc.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
