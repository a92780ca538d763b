package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sciencelab/sciencelab-lms/internal/ai"
	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
)

func CreateExperimentHandler(experiments *experiment.Store, aic *ai.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			YouTubeURL  string `json:"youtube_url"`
			Explanation string `json:"explanation"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		if req.Name == "" || req.YouTubeURL == "" {
			badRequest(w, "Name and YouTube URL required")
			return
		}

		explanation := strings.TrimSpace(req.Explanation)
		if explanation == "" {
			explanation = aic.GenerateExplanation(r.Context(), req.YouTubeURL)
		}

		e, err := experiments.Create(r.Context(), experiment.Experiment{
			Name:        req.Name,
			YouTubeURL:  req.YouTubeURL,
			Explanation: explanation,
			FacultyID:   authsvc.SubjectFromContext(r.Context()),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func ListExperimentsHandler(experiments *experiment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := experiments.List(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetExperimentHandler(experiments *experiment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "experimentID")
		if !ok {
			badRequest(w, "Invalid experiment id")
			return
		}
		e, err := experiments.Get(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// UpdateExperimentHandler lets the owner change anything; the explanation is
// regenerated only when the video changed and no manual text was supplied.
func UpdateExperimentHandler(experiments *experiment.Store, aic *ai.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "experimentID")
		if !ok {
			badRequest(w, "Invalid experiment id")
			return
		}
		var req struct {
			Name        *string `json:"name"`
			YouTubeURL  *string `json:"youtube_url"`
			Explanation *string `json:"explanation"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}

		e, err := experiments.GetOwned(r.Context(), id, authsvc.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}

		urlChanged := false
		if req.Name != nil {
			e.Name = *req.Name
		}
		if req.YouTubeURL != nil && *req.YouTubeURL != e.YouTubeURL {
			e.YouTubeURL = *req.YouTubeURL
			urlChanged = true
		}
		switch {
		case req.Explanation != nil && strings.TrimSpace(*req.Explanation) != "":
			e.Explanation = strings.TrimSpace(*req.Explanation)
		case urlChanged:
			e.Explanation = aic.GenerateExplanation(r.Context(), e.YouTubeURL)
		}

		if err := experiments.Update(r.Context(), e); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func DeleteExperimentHandler(experiments *experiment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "experimentID")
		if !ok {
			badRequest(w, "Invalid experiment id")
			return
		}
		if _, err := experiments.GetOwned(r.Context(), id, authsvc.SubjectFromContext(r.Context())); err != nil {
			writeErr(w, err)
			return
		}
		if err := experiments.Delete(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Experiment deleted"})
	}
}
