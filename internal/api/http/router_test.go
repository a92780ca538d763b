package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sciencelab/sciencelab-lms/internal/ai"
	authsvc "github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/db"
	"github.com/sciencelab/sciencelab-lms/internal/experiment"
	"github.com/sciencelab/sciencelab-lms/internal/quiz"
	"github.com/sciencelab/sciencelab-lms/internal/roster"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	users := user.NewStore(dbh)
	audit := roster.NewAuditStore(dbh)
	tokens := authsvc.NewTokenService("test-secret", time.Hour)
	aic := ai.New("", "", "gpt-3.5-turbo", time.Second, nil)

	srv := httptest.NewServer(NewRouter(Deps{
		DB:          dbh,
		Tokens:      tokens,
		Users:       users,
		Experiments: experiment.NewStore(dbh),
		Quizzes:     quiz.NewStore(dbh, nil),
		AI:          aic,
		ChatHistory: ai.NewHistory(dbh),
		Roster:      roster.NewService(users, audit, bcrypt.MinCost, time.Hour, nil),
		Audit:       audit,

		BcryptCost:  bcrypt.MinCost,
		CORSOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("bad json body %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func signup(t *testing.T, base, email, role string) string {
	t.Helper()
	code, body := doJSON(t, http.MethodPost, base+"/api/auth/signup", "", map[string]string{
		"email": email, "password": "password123", "name": "Test " + role, "role": role,
	})
	if code != http.StatusCreated {
		t.Fatalf("signup %s: status %d, body %v", email, code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("signup %s: no token in %v", email, body)
	}
	return token
}

func TestSignupLoginMe(t *testing.T) {
	srv := testServer(t)

	signup(t, srv.URL, "ada@example.com", "student")

	code, body := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123",
	})
	if code != http.StatusOK {
		t.Fatalf("login: status %d, body %v", code, body)
	}
	token := body["token"].(string)

	code, body = doJSON(t, http.MethodGet, srv.URL+"/api/auth/me", token, nil)
	if code != http.StatusOK {
		t.Fatalf("me: status %d", code)
	}
	if body["email"] != "ada@example.com" {
		t.Errorf("me = %v", body)
	}

	code, body = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	if code != http.StatusUnauthorized {
		t.Errorf("bad password: status %d", code)
	}
	if body["error"] != "Invalid credentials" {
		t.Errorf("bad password body = %v", body)
	}
}

func TestRBACEnforcement(t *testing.T) {
	srv := testServer(t)
	student := signup(t, srv.URL, "stu@example.com", "student")

	// A student may not create experiments, list students or manage faculty.
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/experiments"},
		{http.MethodGet, "/api/students"},
		{http.MethodGet, "/api/admin/faculty/"},
	} {
		code, _ := doJSON(t, tc.method, srv.URL+tc.path, student, map[string]string{})
		if code != http.StatusForbidden {
			t.Errorf("%s %s as student: status %d, want 403", tc.method, tc.path, code)
		}
	}

	// No token at all on a protected route.
	code, _ := doJSON(t, http.MethodGet, srv.URL+"/api/students", "", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", code)
	}
}

func TestQuizFlowOverHTTP(t *testing.T) {
	srv := testServer(t)
	faculty := signup(t, srv.URL, "fac@example.com", "faculty")
	student := signup(t, srv.URL, "stu@example.com", "student")

	code, body := doJSON(t, http.MethodPost, srv.URL+"/api/experiments", faculty, map[string]string{
		"name": "Titration", "youtube_url": "https://youtu.be/abc123", "explanation": "Acid meets base.",
	})
	if code != http.StatusCreated {
		t.Fatalf("create experiment: status %d, body %v", code, body)
	}
	expID := int64(body["id"].(float64))

	code, body = doJSON(t, http.MethodPost, srv.URL+"/api/quizzes", faculty, map[string]any{
		"experiment_id": expID, "title": "Quiz 1",
	})
	if code != http.StatusCreated {
		t.Fatalf("create quiz: status %d, body %v", code, body)
	}
	quizURL := srv.URL + "/api/quizzes/" + jsonID(body["id"])

	code, body = doJSON(t, http.MethodPost, quizURL+"/questions", faculty, map[string]any{
		"question_text": "What color at endpoint?",
		"options": []map[string]any{
			{"text": "Pink", "is_correct": true},
			{"text": "Blue", "is_correct": false},
		},
	})
	if code != http.StatusCreated {
		t.Fatalf("add question: status %d, body %v", code, body)
	}
	questionID := int64(body["question_id"].(float64))
	options := body["options"].([]any)
	var correctOption int64
	for _, o := range options {
		opt := o.(map[string]any)
		if c, ok := opt["is_correct"].(bool); ok && c {
			correctOption = int64(opt["id"].(float64))
		}
	}
	if correctOption == 0 {
		t.Fatalf("no correct option in faculty response: %v", options)
	}

	// The student view of the quiz must not carry answer keys.
	code, body = doJSON(t, http.MethodGet, quizURL, student, nil)
	if code != http.StatusOK {
		t.Fatalf("get quiz: status %d", code)
	}
	for _, q := range body["questions"].([]any) {
		for _, o := range q.(map[string]any)["options"].([]any) {
			if _, leaked := o.(map[string]any)["is_correct"]; leaked {
				t.Fatalf("student view leaks is_correct: %v", o)
			}
		}
	}

	// Submit the correct answer.
	code, body = doJSON(t, http.MethodPost, quizURL+"/submit", student, map[string]any{
		"answers": []map[string]int64{{"question_id": questionID, "option_id": correctOption}},
	})
	if code != http.StatusOK {
		t.Fatalf("submit: status %d, body %v", code, body)
	}
	if body["score"].(float64) != 100 || body["correctCount"].(float64) != 1 || body["totalQuestions"].(float64) != 1 {
		t.Errorf("result = %v", body)
	}

	// Second attempt is refused.
	code, _ = doJSON(t, http.MethodPost, quizURL+"/submit", student, map[string]any{
		"answers": []map[string]int64{{"question_id": questionID, "option_id": correctOption}},
	})
	if code != http.StatusConflict {
		t.Errorf("second submit: status %d, want 409", code)
	}

	// Faculty may not submit attempts.
	code, _ = doJSON(t, http.MethodPost, quizURL+"/submit", faculty, map[string]any{
		"answers": []map[string]int64{{"question_id": questionID, "option_id": correctOption}},
	})
	if code != http.StatusForbidden {
		t.Errorf("faculty submit: status %d, want 403", code)
	}
}

func TestExperimentOwnership(t *testing.T) {
	srv := testServer(t)
	owner := signup(t, srv.URL, "owner@example.com", "faculty")
	other := signup(t, srv.URL, "other@example.com", "faculty")

	code, body := doJSON(t, http.MethodPost, srv.URL+"/api/experiments", owner, map[string]string{
		"name": "Optics", "youtube_url": "https://youtu.be/xyz", "explanation": "Lenses.",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	expURL := srv.URL + "/api/experiments/" + jsonID(body["id"])

	code, _ = doJSON(t, http.MethodPut, expURL, other, map[string]string{"name": "Hijacked"})
	if code != http.StatusForbidden {
		t.Errorf("foreign update: status %d, want 403", code)
	}
	code, _ = doJSON(t, http.MethodDelete, expURL, other, nil)
	if code != http.StatusForbidden {
		t.Errorf("foreign delete: status %d, want 403", code)
	}
	code, _ = doJSON(t, http.MethodPut, expURL, owner, map[string]string{"name": "Optics II"})
	if code != http.StatusOK {
		t.Errorf("owner update: status %d, want 200", code)
	}
}

func TestAIStatusAndUnconfiguredChat(t *testing.T) {
	srv := testServer(t)
	student := signup(t, srv.URL, "stu@example.com", "student")

	code, body := doJSON(t, http.MethodGet, srv.URL+"/api/ai/status", "", nil)
	if code != http.StatusOK || body["hasKey"] != false {
		t.Errorf("status = %d, body %v", code, body)
	}

	faculty := signup(t, srv.URL, "fac@example.com", "faculty")
	code, body = doJSON(t, http.MethodPost, srv.URL+"/api/experiments", faculty, map[string]string{
		"name": "X", "youtube_url": "https://youtu.be/x", "explanation": "Y",
	})
	if code != http.StatusCreated {
		t.Fatal("create experiment failed")
	}
	expID := int64(body["id"].(float64))

	code, _ = doJSON(t, http.MethodPost, srv.URL+"/api/ai/chat", student, map[string]any{
		"experiment_id": expID, "message": "help",
	})
	if code != http.StatusInternalServerError {
		t.Errorf("unconfigured chat: status %d, want 500", code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		code, _ := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		if code != http.StatusOK {
			t.Errorf("%s: status %d", path, code)
		}
	}
}

// jsonID renders a decoded JSON numeric id as a path segment.
func jsonID(v any) string {
	return strconv.FormatInt(int64(v.(float64)), 10)
}
