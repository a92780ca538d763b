// Package roster provisions student accounts: one at a time or as a
// best-effort bulk import. New accounts get a random throwaway password, a
// must-change-password flag and a hashed single-use reset token; raw tokens
// never touch the database.
package roster

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	"github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

const maxReportedErrors = 10

type Service struct {
	users      *user.Store
	audit      *AuditStore
	bcryptCost int
	resetTTL   time.Duration
	log        *slog.Logger
}

func NewService(users *user.Store, audit *AuditStore, bcryptCost int, resetTTL time.Duration, log *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = 12
	}
	if resetTTL <= 0 {
		resetTTL = 48 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{users: users, audit: audit, bcryptCost: bcryptCost, resetTTL: resetTTL, log: log}
}

// Row is one student record from a roster upload.
type Row struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// Invite describes a provisioned account. RawToken is set only by
// ProvisionStudent, for the debug path; bulk imports never expose it.
type Invite struct {
	Email     string `json:"email"`
	UserID    int64  `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
	RawToken  string `json:"-"`
}

// Report summarizes a bulk import: totals plus up to ten sample errors.
type Report struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
	Invites    []Invite `json:"invites"`
}

// ProvisionStudent creates a single student account in the must-change-
// password state, with a reset token valid for the configured TTL.
func (s *Service) ProvisionStudent(ctx context.Context, name, email string) (Invite, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return Invite{}, apperr.New(apperr.KindValidation, "Name and email are required")
	}
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return Invite{}, apperr.Wrap(apperr.KindInternal, "check email", err)
	}
	if exists {
		return Invite{}, apperr.New(apperr.KindValidation, "Email already exists")
	}
	return s.provision(ctx, name, email, "")
}

func (s *Service) provision(ctx context.Context, name, email, password string) (Invite, error) {
	if password == "" {
		password = randomPassword()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Invite{}, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	u, err := s.users.Create(ctx, email, string(hash), name, user.RoleStudent, true)
	if err != nil {
		return Invite{}, err
	}

	raw, tokenHash, err := auth.NewResetToken()
	if err != nil {
		return Invite{}, apperr.Wrap(apperr.KindInternal, "generate reset token", err)
	}
	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.users.CreatePasswordReset(ctx, u.ID, tokenHash, expiresAt); err != nil {
		return Invite{}, err
	}
	s.log.Info("provisioned student", "user_id", u.ID, "email", email)
	return Invite{Email: email, UserID: u.ID, ExpiresAt: expiresAt.Unix(), RawToken: raw}, nil
}

// BulkImport provisions each row independently: a bad row is recorded and
// skipped, never aborting the batch. An audit record is written either way.
func (s *Service) BulkImport(ctx context.Context, facultyID int64, filename string, rows []Row) (Report, error) {
	if len(rows) == 0 {
		return Report{}, apperr.New(apperr.KindValidation, "Students array required")
	}
	if filename == "" {
		filename = "bulk_upload.csv"
	}

	rep := Report{Total: len(rows), Errors: []string{}, Invites: []Invite{}}
	for _, row := range rows {
		name, email := strings.TrimSpace(row.Name), strings.TrimSpace(row.Email)
		if name == "" || email == "" {
			rep.Failed++
			rep.Errors = append(rep.Errors, "Row skipped: Missing name or email")
			continue
		}
		exists, err := s.users.EmailExists(ctx, email)
		if err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("Error creating student: %v", err))
			continue
		}
		if exists {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("Email %s already exists", email))
			continue
		}

		password := strings.TrimSpace(row.Password)
		if len(password) < 8 {
			password = "" // too weak to honor; provision generates one
		}
		inv, err := s.provision(ctx, name, email, password)
		if err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("Error creating student: %v", err))
			continue
		}
		inv.RawToken = "" // never exposed for bulk rows
		rep.Successful++
		rep.Invites = append(rep.Invites, inv)
	}
	if len(rep.Errors) > maxReportedErrors {
		rep.Errors = rep.Errors[:maxReportedErrors]
	}

	if err := s.audit.Record(ctx, facultyID, filename, rep); err != nil {
		// The import already happened; losing the audit row is log-worthy
		// but not a reason to fail the request.
		s.log.Error("bulk upload audit failed", "faculty_id", facultyID, "err", err)
	}
	return rep, nil
}

func randomPassword() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
