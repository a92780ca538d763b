package http

import (
	"encoding/json"
	"net/http"

	"github.com/sciencelab/sciencelab-lms/internal/ai"
	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
	"github.com/sciencelab/sciencelab-lms/internal/quiz"
	"github.com/sciencelab/sciencelab-lms/internal/rbac"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func CreateQuizHandler(quizzes *quiz.Store, experiments *experiment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExperimentID int64  `json:"experiment_id"`
			Title        string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.ExperimentID == 0 || req.Title == "" {
			badRequest(w, "experiment_id and title required")
			return
		}
		// Quizzes may only be created under the caller's own experiment.
		if _, err := experiments.GetOwned(r.Context(), req.ExperimentID, authsvc.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, err)
			return
		}
		q, err := quizzes.Create(r.Context(), req.ExperimentID, req.Title)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// requireQuizOwner resolves the quiz id from the URL and enforces that the
// caller's faculty account owns the parent experiment.
func requireQuizOwner(w http.ResponseWriter, r *http.Request, quizzes *quiz.Store) (int64, bool) {
	id, ok := urlID(r, "quizID")
	if !ok {
		badRequest(w, "Invalid quiz id")
		return 0, false
	}
	owner, err := quizzes.Owner(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return 0, false
	}
	if owner != authsvc.SubjectFromContext(r.Context()) {
		writeErr(w, apperr.New(apperr.KindAuthorization, "Not authorized to modify this quiz"))
		return 0, false
	}
	return id, true
}

func AddQuestionHandler(quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := requireQuizOwner(w, r, quizzes)
		if !ok {
			return
		}
		var req struct {
			QuestionText string             `json:"question_text"`
			Options      []quiz.OptionDraft `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		draft := quiz.QuestionDraft{Text: req.QuestionText, Options: req.Options}
		if errs := quiz.ValidateDraft(&draft, quiz.ManualOptions); len(errs) > 0 {
			writeErr(w, apperr.Batch("Invalid question", []apperr.ItemError{{Index: 0, Errors: errs}}))
			return
		}
		q, err := quizzes.AddQuestion(r.Context(), quizID, draft)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"question_id":   q.ID,
			"question_text": q.Text,
			"options":       q.Options,
		})
	}
}

// AddQuestionBatchHandler validates the whole batch before writing anything,
// then persists it all-or-nothing.
func AddQuestionBatchHandler(quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID, ok := requireQuizOwner(w, r, quizzes)
		if !ok {
			return
		}
		var req struct {
			Questions []quiz.QuestionDraft `json:"questions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if len(req.Questions) == 0 {
			badRequest(w, "questions must be a non-empty array")
			return
		}
		if invalid := quiz.ValidateBatch(req.Questions, quiz.ManualOptions); len(invalid) > 0 {
			writeErr(w, apperr.Batch("One or more questions invalid", invalid))
			return
		}
		created, err := quizzes.AddBatch(r.Context(), quizID, req.Questions)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int{"created": created})
	}
}

// GenerateQuestionsHandler drafts questions with the AI collaborator for
// faculty review; persistence happens through the batch endpoint afterwards.
func GenerateQuestionsHandler(quizzes *quiz.Store, experiments *experiment.Store, aic *ai.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireQuizOwner(w, r, quizzes); !ok {
			return
		}
		var req struct {
			ExperimentID int64 `json:"experiment_id"`
			NumQuestions int   `json:"num_questions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.NumQuestions < 1 || req.NumQuestions > 20 {
			badRequest(w, "num_questions must be between 1 and 20")
			return
		}
		if req.ExperimentID == 0 {
			badRequest(w, "experiment_id is required and must be a valid numeric id")
			return
		}
		exp, err := experiments.Get(r.Context(), req.ExperimentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		drafts, err := aic.DraftQuestions(r.Context(), exp, req.NumQuestions)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": drafts})
	}
}

func GetQuizHandler(quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "quizID")
		if !ok {
			badRequest(w, "Invalid quiz id")
			return
		}

		// Answer keys are serialized only for the owning faculty member or
		// an admin; students and anonymous readers get bare options.
		includeAnswers := false
		switch rbac.RoleFromContext(r.Context()) {
		case user.RoleAdmin:
			includeAnswers = true
		case user.RoleFaculty:
			owner, err := quizzes.Owner(r.Context(), id)
			if err == nil && owner == authsvc.SubjectFromContext(r.Context()) {
				includeAnswers = true
			}
		}

		q, questions, err := quizzes.Get(r.Context(), id, includeAnswers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":            q.ID,
			"experiment_id": q.ExperimentID,
			"title":         q.Title,
			"created_at":    q.CreatedAt,
			"questions":     questions,
		})
	}
}

func ListQuizzesByExperimentHandler(quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "experimentID")
		if !ok {
			badRequest(w, "Invalid experiment id")
			return
		}
		list, err := quizzes.ListByExperiment(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func SubmitQuizHandler(quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "quizID")
		if !ok {
			badRequest(w, "Invalid quiz id")
			return
		}
		var req struct {
			Answers []quiz.AnswerInput `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "answers array required")
			return
		}
		res, err := quizzes.SubmitAttempt(r.Context(), id, authsvc.SubjectFromContext(r.Context()), req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ListAttemptsHandler(quizzes *quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "quizID")
		if !ok {
			badRequest(w, "Invalid quiz id")
			return
		}
		attempts, err := quizzes.ListAttempts(r.Context(), id, authsvc.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
	}
}
