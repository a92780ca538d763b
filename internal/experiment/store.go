package experiment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbh *sql.DB) *Store { return &Store{db: dbh} }

func (s *Store) Create(ctx context.Context, e Experiment) (Experiment, error) {
	e.CreatedAt = time.Now().Unix()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO experiments (name, youtube_url, explanation, faculty_id, created_at)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		e.Name, e.YouTubeURL, e.Explanation, e.FacultyID, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return Experiment{}, apperr.Wrap(apperr.KindInternal, "create experiment", err)
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Experiment, error) {
	var e Experiment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, youtube_url, explanation, faculty_id, created_at
		 FROM experiments WHERE id=$1`, id).
		Scan(&e.ID, &e.Name, &e.YouTubeURL, &e.Explanation, &e.FacultyID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Experiment{}, apperr.New(apperr.KindNotFound, "Experiment not found")
	}
	if err != nil {
		return Experiment{}, apperr.Wrap(apperr.KindInternal, "load experiment", err)
	}
	return e, nil
}

func (s *Store) List(ctx context.Context) ([]Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, youtube_url, explanation, faculty_id, created_at
		 FROM experiments ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list experiments", err)
	}
	defer rows.Close()
	out := []Experiment{}
	for rows.Next() {
		var e Experiment
		if err := rows.Scan(&e.ID, &e.Name, &e.YouTubeURL, &e.Explanation, &e.FacultyID, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan experiment", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update persists name/url/explanation. Ownership must already be verified
// through GetOwned.
func (s *Store) Update(ctx context.Context, e Experiment) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE experiments SET name=$1, youtube_url=$2, explanation=$3 WHERE id=$4`,
		e.Name, e.YouTubeURL, e.Explanation, e.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update experiment", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM experiments WHERE id=$1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete experiment", err)
	}
	return nil
}

// GetOwned loads an experiment and enforces that facultyID owns it. Every
// faculty mutation under an experiment goes through this check.
func (s *Store) GetOwned(ctx context.Context, id, facultyID int64) (Experiment, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return Experiment{}, err
	}
	if e.FacultyID != facultyID {
		return Experiment{}, apperr.New(apperr.KindAuthorization, "Not authorized")
	}
	return e, nil
}
