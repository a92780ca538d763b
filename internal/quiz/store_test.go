package quiz

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	"github.com/sciencelab/sciencelab-lms/internal/db"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return dbh
}

func seedUser(t *testing.T, dbh *sql.DB, email, role string) int64 {
	t.Helper()
	var id int64
	err := dbh.QueryRow(
		`INSERT INTO users (email, password_hash, role, name, created_at) VALUES ($1,'x',$2,'Test User',$3) RETURNING id`,
		email, role, time.Now().Unix()).Scan(&id)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedExperiment(t *testing.T, dbh *sql.DB, facultyID int64) int64 {
	t.Helper()
	var id int64
	err := dbh.QueryRow(
		`INSERT INTO experiments (name, youtube_url, explanation, faculty_id, created_at)
		 VALUES ('Titration','https://youtu.be/abc','',$1,$2) RETURNING id`,
		facultyID, time.Now().Unix()).Scan(&id)
	if err != nil {
		t.Fatalf("seed experiment: %v", err)
	}
	return id
}

// seedQuiz builds a quiz with one question whose options are A (incorrect)
// and B (correct), returning the ids needed for grading assertions.
func seedQuiz(t *testing.T, s *Store, experimentID int64) (quizID, questionID, optA, optB int64) {
	t.Helper()
	ctx := context.Background()
	q, err := s.Create(ctx, experimentID, "Quiz 1")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question, err := s.AddQuestion(ctx, q.ID, QuestionDraft{
		Text: "Which indicator turns pink?",
		Options: []OptionDraft{
			{Text: "Methyl orange", IsCorrect: b(false)},
			{Text: "Phenolphthalein", IsCorrect: b(true)},
		},
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	return q.ID, question.ID, question.Options[0].ID, question.Options[1].ID
}

func TestAddBatchAllOrNothing(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	expID := seedExperiment(t, dbh, facultyID)
	q, err := s.Create(ctx, expID, "Batch quiz")
	if err != nil {
		t.Fatal(err)
	}

	drafts := []QuestionDraft{
		{Text: "Q1", Options: []OptionDraft{{Text: "A", IsCorrect: b(true)}, {Text: "B", IsCorrect: b(false)}}},
		{Text: "Q2", Options: []OptionDraft{{Text: "C", IsCorrect: b(false)}, {Text: "D", IsCorrect: b(true)}}},
	}
	n, err := s.AddBatch(ctx, q.ID, drafts)
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if n != 2 {
		t.Errorf("created = %d, want 2", n)
	}

	_, questions, err := s.Get(ctx, q.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(questions))
	}
	if len(questions[0].Options) != 2 || len(questions[1].Options) != 2 {
		t.Errorf("options not persisted with questions: %+v", questions)
	}
}

func TestGetHidesAnswersUnlessRequested(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, _, _, _ := seedQuiz(t, s, expID)

	_, questions, err := s.Get(ctx, quizID, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range questions {
		for _, o := range q.Options {
			if o.IsCorrect != nil {
				t.Errorf("option %d leaked is_correct in student view", o.ID)
			}
		}
	}

	_, questions, err = s.Get(ctx, quizID, true)
	if err != nil {
		t.Fatal(err)
	}
	seen := 0
	for _, q := range questions {
		for _, o := range q.Options {
			if o.IsCorrect == nil {
				t.Errorf("option %d missing is_correct in faculty view", o.ID)
				continue
			}
			if *o.IsCorrect {
				seen++
			}
		}
	}
	if seen != 1 {
		t.Errorf("correct options in faculty view = %d, want 1", seen)
	}
}

func TestGetUnknownQuiz(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	_, _, err := s.Get(context.Background(), 9999, false)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want not_found (err=%v)", apperr.KindOf(err), err)
	}
}

func TestSubmitAttemptScoring(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	studentID := seedUser(t, dbh, "stu@example.com", "student")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, questionID, _, optB := seedQuiz(t, s, expID)

	res, err := s.SubmitAttempt(ctx, quizID, studentID, []AnswerInput{
		{QuestionID: questionID, OptionID: optB},
	})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if res.Score != 100 || res.CorrectCount != 1 || res.TotalQuestions != 1 {
		t.Errorf("result = %+v, want score 100, correct 1 of 1", res)
	}

	attempts, err := s.ListAttempts(ctx, quizID, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts))
	}
	if attempts[0].Score != 100 || attempts[0].TotalQuestions != 1 {
		t.Errorf("persisted attempt = %+v", attempts[0])
	}
}

func TestSubmitAttemptWrongAnswer(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	studentID := seedUser(t, dbh, "stu@example.com", "student")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, questionID, optA, _ := seedQuiz(t, s, expID)

	res, err := s.SubmitAttempt(ctx, quizID, studentID, []AnswerInput{
		{QuestionID: questionID, OptionID: optA},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 0 || res.CorrectCount != 0 || res.TotalQuestions != 1 {
		t.Errorf("result = %+v, want score 0", res)
	}
}

func TestSubmitAttemptUnknownOptionCountsIncorrect(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	studentID := seedUser(t, dbh, "stu@example.com", "student")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, questionID, _, optB := seedQuiz(t, s, expID)

	res, err := s.SubmitAttempt(ctx, quizID, studentID, []AnswerInput{
		{QuestionID: questionID, OptionID: optB},
		{QuestionID: questionID + 100, OptionID: 99999},
	})
	if err != nil {
		t.Fatal(err)
	}
	// The phantom answer stays in the denominator.
	if res.Score != 50 || res.CorrectCount != 1 || res.TotalQuestions != 2 {
		t.Errorf("result = %+v, want score 50, correct 1 of 2", res)
	}

	var nullOptions int
	err = dbh.QueryRow(`SELECT COUNT(*) FROM student_answers WHERE selected_option_id IS NULL`).Scan(&nullOptions)
	if err != nil {
		t.Fatal(err)
	}
	if nullOptions != 1 {
		t.Errorf("NULL-option answers = %d, want 1", nullOptions)
	}
}

func TestSubmitAttemptMismatchedQuestionIncorrect(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	studentID := seedUser(t, dbh, "stu@example.com", "student")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, _, _, optB := seedQuiz(t, s, expID)

	// optB is correct for its own question, but the submission claims it
	// answers a different question.
	res, err := s.SubmitAttempt(ctx, quizID, studentID, []AnswerInput{
		{QuestionID: 424242, OptionID: optB},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.CorrectCount != 0 {
		t.Errorf("mismatched question graded correct: %+v", res)
	}
}

func TestSubmitAttemptEmpty(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	_, err := s.SubmitAttempt(context.Background(), 1, 1, nil)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("kind = %v, want validation", apperr.KindOf(err))
	}
}

func TestSubmitAttemptUnknownQuiz(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	_, err := s.SubmitAttempt(context.Background(), 777, 1, []AnswerInput{{QuestionID: 1, OptionID: 1}})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want not_found (err=%v)", apperr.KindOf(err), err)
	}
}

func TestSubmitAttemptOnlyOnce(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	studentID := seedUser(t, dbh, "stu@example.com", "student")
	otherID := seedUser(t, dbh, "other@example.com", "student")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, questionID, _, optB := seedQuiz(t, s, expID)

	answers := []AnswerInput{{QuestionID: questionID, OptionID: optB}}
	if _, err := s.SubmitAttempt(ctx, quizID, studentID, answers); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	_, err := s.SubmitAttempt(ctx, quizID, studentID, answers)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("second attempt kind = %v, want conflict (err=%v)", apperr.KindOf(err), err)
	}

	// A different student is not blocked.
	if _, err := s.SubmitAttempt(ctx, quizID, otherID, answers); err != nil {
		t.Errorf("other student blocked: %v", err)
	}
}

func TestOwnerResolvesThroughExperiment(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, _, _, _ := seedQuiz(t, s, expID)

	owner, err := s.Owner(ctx, quizID)
	if err != nil {
		t.Fatal(err)
	}
	if owner != facultyID {
		t.Errorf("owner = %d, want %d", owner, facultyID)
	}

	if _, err := s.Owner(ctx, 555); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown quiz owner kind = %v, want not_found", apperr.KindOf(err))
	}
}

func TestListStudentAttemptsIncludesTitles(t *testing.T) {
	dbh := testDB(t)
	s := NewStore(dbh, nil)
	ctx := context.Background()

	facultyID := seedUser(t, dbh, "fac@example.com", "faculty")
	studentID := seedUser(t, dbh, "stu@example.com", "student")
	expID := seedExperiment(t, dbh, facultyID)
	quizID, questionID, _, optB := seedQuiz(t, s, expID)

	if _, err := s.SubmitAttempt(ctx, quizID, studentID, []AnswerInput{{QuestionID: questionID, OptionID: optB}}); err != nil {
		t.Fatal(err)
	}

	attempts, err := s.ListStudentAttempts(ctx, studentID)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(attempts))
	}
	if attempts[0].QuizTitle != "Quiz 1" {
		t.Errorf("title = %q, want %q", attempts[0].QuizTitle, "Quiz 1")
	}
}
