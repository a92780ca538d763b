package quiz

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	"github.com/sciencelab/sciencelab-lms/internal/db"
)

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func NewStore(dbh *sql.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: dbh, log: log}
}

func (s *Store) Create(ctx context.Context, experimentID int64, title string) (Quiz, error) {
	q := Quiz{ExperimentID: experimentID, Title: title, CreatedAt: time.Now().Unix()}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO quizzes (experiment_id, title, created_at) VALUES ($1,$2,$3) RETURNING id`,
		experimentID, title, q.CreatedAt).Scan(&q.ID)
	if err != nil {
		return Quiz{}, apperr.Wrap(apperr.KindInternal, "create quiz", err)
	}
	return q, nil
}

// Owner resolves the faculty user owning the quiz's parent experiment.
func (s *Store) Owner(ctx context.Context, quizID int64) (int64, error) {
	var facultyID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT e.faculty_id FROM quizzes q JOIN experiments e ON q.experiment_id = e.id
		 WHERE q.id=$1`, quizID).Scan(&facultyID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.New(apperr.KindNotFound, "Quiz not found")
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "load quiz owner", err)
	}
	return facultyID, nil
}

func (s *Store) ListByExperiment(ctx context.Context, experimentID int64) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title FROM quizzes WHERE experiment_id=$1 ORDER BY id`, experimentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list quizzes", err)
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		q := Quiz{ExperimentID: experimentID}
		if err := rows.Scan(&q.ID, &q.Title); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan quiz", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// AddQuestion persists one validated draft and its options as a unit.
func (s *Store) AddQuestion(ctx context.Context, quizID int64, d QuestionDraft) (Question, error) {
	var out Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		q, err := insertQuestion(ctx, tx, quizID, d)
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return Question{}, err
	}
	return out, nil
}

// AddBatch persists every validated draft inside a single transaction:
// either all questions and options land, or none do. The detailed write
// failure is logged, not returned.
func (s *Store) AddBatch(ctx context.Context, quizID int64, drafts []QuestionDraft) (int, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range drafts {
			if _, err := insertQuestion(ctx, tx, quizID, drafts[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("question batch insert failed", "quiz_id", quizID, "count", len(drafts), "err", err)
		return 0, apperr.Wrap(apperr.KindInternal, "Failed to create questions batch", err)
	}
	return len(drafts), nil
}

func insertQuestion(ctx context.Context, tx *sql.Tx, quizID int64, d QuestionDraft) (Question, error) {
	q := Question{QuizID: quizID, Text: d.Text}
	err := tx.QueryRowContext(ctx,
		`INSERT INTO questions (quiz_id, question_text, created_at) VALUES ($1,$2,$3) RETURNING id`,
		quizID, d.Text, time.Now().Unix()).Scan(&q.ID)
	if err != nil {
		return Question{}, err
	}
	for _, opt := range d.Options {
		correct := opt.IsCorrect != nil && *opt.IsCorrect
		o := Option{Text: opt.Text, IsCorrect: boolPtr(correct)}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO options (question_id, option_text, is_correct) VALUES ($1,$2,$3) RETURNING id`,
			q.ID, opt.Text, correct).Scan(&o.ID)
		if err != nil {
			return Question{}, err
		}
		q.Options = append(q.Options, o)
	}
	return q, nil
}

// Get returns the quiz with its questions and options. Unless includeAnswers
// is set, correctness flags are stripped before the quiz leaves the store.
func (s *Store) Get(ctx context.Context, id int64, includeAnswers bool) (Quiz, []Question, error) {
	var q Quiz
	err := s.db.QueryRowContext(ctx,
		`SELECT id, experiment_id, title, created_at FROM quizzes WHERE id=$1`, id).
		Scan(&q.ID, &q.ExperimentID, &q.Title, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, nil, apperr.New(apperr.KindNotFound, "Quiz not found")
	}
	if err != nil {
		return Quiz{}, nil, apperr.Wrap(apperr.KindInternal, "load quiz", err)
	}

	qrows, err := s.db.QueryContext(ctx,
		`SELECT id, question_text FROM questions WHERE quiz_id=$1 ORDER BY id`, id)
	if err != nil {
		return Quiz{}, nil, apperr.Wrap(apperr.KindInternal, "load questions", err)
	}
	defer qrows.Close()

	questions := []Question{}
	index := map[int64]int{}
	for qrows.Next() {
		var question Question
		if err := qrows.Scan(&question.ID, &question.Text); err != nil {
			return Quiz{}, nil, apperr.Wrap(apperr.KindInternal, "scan question", err)
		}
		question.Options = []Option{}
		index[question.ID] = len(questions)
		questions = append(questions, question)
	}
	if err := qrows.Err(); err != nil {
		return Quiz{}, nil, apperr.Wrap(apperr.KindInternal, "scan questions", err)
	}

	orows, err := s.db.QueryContext(ctx,
		`SELECT o.question_id, o.id, o.option_text, o.is_correct
		 FROM options o JOIN questions qq ON o.question_id = qq.id
		 WHERE qq.quiz_id=$1 ORDER BY o.id`, id)
	if err != nil {
		return Quiz{}, nil, apperr.Wrap(apperr.KindInternal, "load options", err)
	}
	defer orows.Close()
	for orows.Next() {
		var questionID int64
		var o Option
		var correct bool
		if err := orows.Scan(&questionID, &o.ID, &o.Text, &correct); err != nil {
			return Quiz{}, nil, apperr.Wrap(apperr.KindInternal, "scan option", err)
		}
		if includeAnswers {
			o.IsCorrect = boolPtr(correct)
		}
		if i, ok := index[questionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return q, questions, orows.Err()
}

// SubmitAttempt grades and records one student submission. The uniqueness
// check, attempt insert and answer inserts share a transaction so concurrent
// double-submits cannot both land.
func (s *Store) SubmitAttempt(ctx context.Context, quizID, studentID int64, answers []AnswerInput) (Result, error) {
	if len(answers) == 0 {
		return Result{}, apperr.New(apperr.KindValidation, "answers must be a non-empty array")
	}

	var res Result
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var quizExists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&quizExists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.New(apperr.KindNotFound, "Quiz not found")
			}
			return err
		}

		var attempted int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM quiz_attempts WHERE student_id=$1 AND quiz_id=$2`,
			studentID, quizID).Scan(&attempted)
		if err == nil {
			return apperr.New(apperr.KindConflict, "quiz already attempted")
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Grade before writing anything. An answer whose option does not
		// exist, or belongs to a different question than claimed, counts as
		// incorrect and stays in the denominator.
		type graded struct {
			questionID int64
			optionID   sql.NullInt64
			correct    bool
		}
		gradedAnswers := make([]graded, 0, len(answers))
		correctCount := 0
		for _, a := range answers {
			g := graded{questionID: a.QuestionID}
			var optQuestionID int64
			var isCorrect bool
			err := tx.QueryRowContext(ctx,
				`SELECT question_id, is_correct FROM options WHERE id=$1`,
				a.OptionID).Scan(&optQuestionID, &isCorrect)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// leave optionID NULL, incorrect
			case err != nil:
				return err
			default:
				g.optionID = sql.NullInt64{Int64: a.OptionID, Valid: true}
				g.correct = isCorrect && optQuestionID == a.QuestionID
			}
			if g.correct {
				correctCount++
			}
			gradedAnswers = append(gradedAnswers, g)
		}

		score := float64(correctCount) / float64(len(answers)) * 100

		var attemptID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO quiz_attempts (student_id, quiz_id, score, total_questions, attempted_at)
			 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
			studentID, quizID, score, len(answers), time.Now().Unix()).Scan(&attemptID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.New(apperr.KindConflict, "quiz already attempted")
			}
			return err
		}

		for _, g := range gradedAnswers {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO student_answers (attempt_id, question_id, selected_option_id, is_correct)
				 VALUES ($1,$2,$3,$4)`,
				attemptID, g.questionID, g.optionID, g.correct)
			if err != nil {
				return err
			}
		}

		res = Result{Score: score, CorrectCount: correctCount, TotalQuestions: len(answers)}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			s.log.Error("attempt submission failed", "quiz_id", quizID, "student_id", studentID, "err", err)
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to record attempt", err)
		}
		return Result{}, err
	}
	return res, nil
}

// ListAttempts returns one student's attempts for a quiz, newest first.
func (s *Store) ListAttempts(ctx context.Context, quizID, studentID int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, score, total_questions, attempted_at FROM quiz_attempts
		 WHERE student_id=$1 AND quiz_id=$2 ORDER BY attempted_at DESC`,
		studentID, quizID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list attempts", err)
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a := Attempt{QuizID: quizID}
		if err := rows.Scan(&a.ID, &a.Score, &a.TotalQuestions, &a.AttemptedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan attempt", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListStudentAttempts returns every attempt by one student joined to quiz
// titles, for faculty progress views.
func (s *Store) ListStudentAttempts(ctx context.Context, studentID int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT qa.id, qa.quiz_id, q.title, qa.score, qa.total_questions, qa.attempted_at
		 FROM quiz_attempts qa JOIN quizzes q ON qa.quiz_id = q.id
		 WHERE qa.student_id=$1 ORDER BY qa.attempted_at DESC`, studentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list student attempts", err)
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.QuizTitle, &a.Score, &a.TotalQuestions, &a.AttemptedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan attempt", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = fn(tx)
	return
}

func boolPtr(b bool) *bool { return &b }
