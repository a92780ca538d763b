package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	"github.com/sciencelab/sciencelab-lms/internal/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbh *sql.DB) *Store { return &Store{db: dbh} }

// Create inserts a user. A duplicate email yields a validation error so the
// caller can surface "Email already exists" exactly like manual signup.
func (s *Store) Create(ctx context.Context, email, passwordHash, name, role string, requireChange bool) (User, error) {
	u := User{Email: email, Name: name, Role: role, RequirePasswordChange: requireChange, CreatedAt: time.Now().Unix()}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, role, name, require_password_change, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		email, passwordHash, role, name, requireChange, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.New(apperr.KindValidation, "Email already exists")
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "create user", err)
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, name, require_password_change, created_at
		 FROM users WHERE email=$1`, email))
}

func (s *Store) GetByID(ctx context.Context, id int64) (User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, name, require_password_change, created_at
		 FROM users WHERE id=$1`, id))
}

func (s *Store) scanOne(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.RequirePasswordChange, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "load user", err)
	}
	return u, nil
}

func (s *Store) ListByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE role=$1 ORDER BY name`, role)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list users", err)
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u := User{Role: role}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan user", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EmailExists is the pre-check used by roster provisioning; signup relies on
// the unique constraint instead.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a user with the given role. Used by admin faculty removal.
func (s *Store) Delete(ctx context.Context, id int64, role string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1 AND role=$2`, id, role)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, role+" not found")
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$1, require_password_change=$2 WHERE id=$3`,
		passwordHash, false, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update password", err)
	}
	return nil
}

// ---- profiles ----

func (s *Store) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT bio, phone FROM user_profiles WHERE user_id=$1`, userID).Scan(&p.Bio, &p.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, nil // absent profile reads as empty
	}
	if err != nil {
		return Profile{}, apperr.Wrap(apperr.KindInternal, "load profile", err)
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, userID int64, p Profile) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, bio, phone, updated_at) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (user_id) DO UPDATE SET bio=EXCLUDED.bio, phone=EXCLUDED.phone, updated_at=EXCLUDED.updated_at`,
		userID, p.Bio, p.Phone, now)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "save profile", err)
	}
	return nil
}

// ---- password resets ----

func (s *Store) CreatePasswordReset(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO password_resets (user_id, token_hash, expires_at, used) VALUES ($1,$2,$3,$4)`,
		userID, tokenHash, expiresAt.Unix(), false)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create password reset", err)
	}
	return nil
}

// GetActiveReset returns the unused, unexpired reset row matching tokenHash.
func (s *Store) GetActiveReset(ctx context.Context, tokenHash string) (PasswordReset, error) {
	var pr PasswordReset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, used FROM password_resets
		 WHERE token_hash=$1 AND used=$2 AND expires_at > $3`,
		tokenHash, false, time.Now().Unix()).
		Scan(&pr.ID, &pr.UserID, &pr.TokenHash, &pr.ExpiresAt, &pr.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return PasswordReset{}, apperr.New(apperr.KindValidation, "invalid or expired token")
	}
	if err != nil {
		return PasswordReset{}, apperr.Wrap(apperr.KindInternal, "load password reset", err)
	}
	return pr, nil
}

func (s *Store) MarkResetUsed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used=$1 WHERE id=$2`, true, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark reset used", err)
	}
	return nil
}
