package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sciencelab/sciencelab-lms/internal/ai"
	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
	"github.com/sciencelab/sciencelab-lms/internal/quiz"
	"github.com/sciencelab/sciencelab-lms/internal/rbac"
	"github.com/sciencelab/sciencelab-lms/internal/roster"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

// Deps carries everything the HTTP layer needs; main wires it once.
type Deps struct {
	DB          *sql.DB
	Tokens      *authsvc.TokenService
	Users       *user.Store
	Experiments *experiment.Store
	Quizzes     *quiz.Store
	AI          *ai.Client
	ChatHistory *ai.History
	Roster      *roster.Service
	Audit       *roster.AuditStore
	Log         *slog.Logger

	BcryptCost       int
	CORSOrigins      []string
	ExposeResetToken bool
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.DB.PingContext(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", SignupHandler(d.Users, d.Tokens, d.BcryptCost))
			r.Post("/login", LoginHandler(d.Users, d.Tokens))
			r.Post("/reset-password", ResetPasswordHandler(d.Users, d.BcryptCost))
			r.With(authsvc.Middleware(d.Tokens)).Get("/me", MeHandler(d.Users))
		})

		// Catalog reads are public; a token, when present, still flows
		// through so answer-key visibility can depend on the caller.
		r.Group(func(r chi.Router) {
			r.Use(authsvc.Optional(d.Tokens))
			r.Get("/experiments", ListExperimentsHandler(d.Experiments))
			r.Get("/experiments/{experimentID}", GetExperimentHandler(d.Experiments))
			r.Get("/quizzes/{quizID}", GetQuizHandler(d.Quizzes))
			r.Get("/quizzes/experiment/{experimentID}", ListQuizzesByExperimentHandler(d.Quizzes))
			r.Get("/ai/status", AIStatusHandler(d.AI))
		})

		r.Group(func(r chi.Router) {
			r.Use(authsvc.Middleware(d.Tokens))

			r.With(rbac.Require("experiment:create")).Post("/experiments", CreateExperimentHandler(d.Experiments, d.AI))
			r.With(rbac.Require("experiment:update-own")).Put("/experiments/{experimentID}", UpdateExperimentHandler(d.Experiments, d.AI))
			r.With(rbac.Require("experiment:delete-own")).Delete("/experiments/{experimentID}", DeleteExperimentHandler(d.Experiments))

			r.With(rbac.Require("quiz:create")).Post("/quizzes", CreateQuizHandler(d.Quizzes, d.Experiments))
			r.With(rbac.Require("question:create")).Post("/quizzes/{quizID}/questions", AddQuestionHandler(d.Quizzes))
			r.With(rbac.Require("question:create")).Post("/quizzes/{quizID}/questions/batch", AddQuestionBatchHandler(d.Quizzes))
			r.With(rbac.Require("question:generate")).Post("/quizzes/{quizID}/generate-questions", GenerateQuestionsHandler(d.Quizzes, d.Experiments, d.AI))
			r.With(rbac.Require("attempt:submit")).Post("/quizzes/{quizID}/submit", SubmitQuizHandler(d.Quizzes))
			r.With(rbac.Require("attempt:view-own")).Get("/quizzes/{quizID}/attempts", ListAttemptsHandler(d.Quizzes))

			r.With(rbac.Require("ai:chat")).Post("/ai/chat", ChatHandler(d.AI, d.Experiments, d.ChatHistory, d.Log))

			r.With(rbac.Require("student:list")).Get("/students", ListStudentsHandler(d.Users))
			r.With(rbac.Require("roster:create")).Post("/students", CreateStudentHandler(d.Roster, d.ExposeResetToken))
			r.With(rbac.Require("student:progress")).Get("/students/{studentID}/progress", StudentProgressHandler(d.Users, d.Quizzes))

			r.With(rbac.Require("roster:bulk")).Post("/bulk-upload/students", BulkUploadHandler(d.Roster))
			r.With(rbac.Require("roster:bulk")).Get("/bulk-upload/history", UploadHistoryHandler(d.Audit))

			r.Route("/admin/faculty", func(r chi.Router) {
				r.Use(rbac.Require("faculty:manage"))
				r.Get("/", ListFacultyHandler(d.Users))
				r.Post("/", CreateFacultyHandler(d.Users, d.BcryptCost))
				r.Delete("/{facultyID}", DeleteFacultyHandler(d.Users))
			})

			r.Route("/profile", func(r chi.Router) {
				r.With(rbac.Require("profile:view")).Get("/", GetProfileHandler(d.Users))
				r.With(rbac.Require("profile:update")).Put("/", UpdateProfileHandler(d.Users))
				r.With(rbac.Require("user:change_password")).Put("/password", ChangePasswordHandler(d.Users, d.BcryptCost))
			})
		})
	})

	return r
}
