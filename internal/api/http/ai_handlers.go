package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sciencelab/sciencelab-lms/internal/ai"
	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
)

func ChatHandler(aic *ai.Client, experiments *experiment.Store, history *ai.History, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExperimentID int64  `json:"experiment_id"`
			Message      string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.ExperimentID == 0 || req.Message == "" {
			badRequest(w, "experiment_id and message required")
			return
		}
		exp, err := experiments.Get(r.Context(), req.ExperimentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		reply, err := aic.Chat(r.Context(), exp, req.Message)
		if err != nil {
			writeErr(w, err)
			return
		}
		studentID := authsvc.SubjectFromContext(r.Context())
		if err := history.Append(r.Context(), studentID, exp.ID, req.Message, reply); err != nil {
			// The student already has the reply; losing a transcript row is
			// not worth failing the request over.
			log.Error("chat history append failed", "error", err, "student_id", studentID)
		}
		writeJSON(w, http.StatusOK, map[string]string{"response": reply})
	}
}

func AIStatusHandler(aic *ai.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"hasKey": aic.Configured()})
	}
}
