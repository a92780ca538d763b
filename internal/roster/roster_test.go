package roster

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
	"github.com/sciencelab/sciencelab-lms/internal/auth"
	"github.com/sciencelab/sciencelab-lms/internal/db"
	"github.com/sciencelab/sciencelab-lms/internal/user"
)

func testService(t *testing.T) (*Service, *user.Store, *AuditStore, *sql.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	users := user.NewStore(dbh)
	audit := NewAuditStore(dbh)
	return NewService(users, audit, bcrypt.MinCost, time.Hour, nil), users, audit, dbh
}

func seedFaculty(t *testing.T, dbh *sql.DB) int64 {
	t.Helper()
	var id int64
	err := dbh.QueryRow(
		`INSERT INTO users (email, password_hash, role, name, created_at) VALUES ('fac@example.com','x','faculty','Fac',$1) RETURNING id`,
		time.Now().Unix()).Scan(&id)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestProvisionStudent(t *testing.T) {
	svc, users, _, _ := testService(t)
	ctx := context.Background()

	inv, err := svc.ProvisionStudent(ctx, "Ada Lovelace", "ada@example.com")
	if err != nil {
		t.Fatalf("ProvisionStudent: %v", err)
	}
	if inv.RawToken == "" {
		t.Error("no raw reset token returned")
	}

	u, err := users.GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != user.RoleStudent {
		t.Errorf("role = %q, want student", u.Role)
	}
	if !u.RequirePasswordChange {
		t.Error("account not flagged for password change")
	}

	// The raw token must redeem against the stored hash.
	pr, err := users.GetActiveReset(ctx, auth.HashResetToken(inv.RawToken))
	if err != nil {
		t.Fatalf("reset token not redeemable: %v", err)
	}
	if pr.UserID != u.ID {
		t.Errorf("reset belongs to user %d, want %d", pr.UserID, u.ID)
	}
}

func TestProvisionStudentValidation(t *testing.T) {
	svc, _, _, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.ProvisionStudent(ctx, "", "a@example.com"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("missing name: kind = %v, want validation", apperr.KindOf(err))
	}

	if _, err := svc.ProvisionStudent(ctx, "A", "dup@example.com"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.ProvisionStudent(ctx, "B", "dup@example.com")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("duplicate email: kind = %v, want validation", apperr.KindOf(err))
	}
	if err == nil || !strings.Contains(err.Error(), "Email already exists") {
		t.Errorf("duplicate email message = %v", err)
	}
}

func TestBulkImportPartialFailure(t *testing.T) {
	svc, users, _, dbh := testService(t)
	ctx := context.Background()
	facultyID := seedFaculty(t, dbh)

	// Pre-existing account collides with the second row.
	if _, err := svc.ProvisionStudent(ctx, "Existing", "taken@example.com"); err != nil {
		t.Fatal(err)
	}

	rep, err := svc.BulkImport(ctx, facultyID, "roster.csv", []Row{
		{Name: "Ada", Email: "ada@example.com"},
		{Name: "Grace", Email: "taken@example.com"},
		{Name: "", Email: "noname@example.com"},
		{Name: "Alan", Email: "alan@example.com", Password: "strongpass123"},
	})
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}

	if rep.Total != 4 || rep.Successful != 2 || rep.Failed != 2 {
		t.Errorf("report = %+v, want total 4, successful 2, failed 2", rep)
	}
	wantErrs := []string{
		"Email taken@example.com already exists",
		"Row skipped: Missing name or email",
	}
	if len(rep.Errors) != 2 || rep.Errors[0] != wantErrs[0] || rep.Errors[1] != wantErrs[1] {
		t.Errorf("errors = %v, want %v", rep.Errors, wantErrs)
	}
	for _, inv := range rep.Invites {
		if inv.RawToken != "" {
			t.Errorf("bulk invite for %s exposes raw token", inv.Email)
		}
	}

	// Row with an explicit password keeps it.
	alan, err := users.GetByEmail(ctx, "alan@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(alan.PasswordHash), []byte("strongpass123")) != nil {
		t.Error("explicit password not honored")
	}
}

func TestBulkImportEmpty(t *testing.T) {
	svc, _, _, dbh := testService(t)
	facultyID := seedFaculty(t, dbh)
	_, err := svc.BulkImport(context.Background(), facultyID, "x.csv", nil)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("kind = %v, want validation", apperr.KindOf(err))
	}
}

func TestBulkImportRecordsAudit(t *testing.T) {
	svc, _, audit, dbh := testService(t)
	ctx := context.Background()
	facultyID := seedFaculty(t, dbh)

	if _, err := svc.BulkImport(ctx, facultyID, "sep-roster.csv", []Row{
		{Name: "Ada", Email: "ada@example.com"},
	}); err != nil {
		t.Fatal(err)
	}

	uploads, err := audit.History(ctx, facultyID)
	if err != nil {
		t.Fatal(err)
	}
	if len(uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploads))
	}
	u := uploads[0]
	if u.Filename != "sep-roster.csv" || u.Total != 1 || u.Successful != 1 || u.Failed != 0 {
		t.Errorf("audit row = %+v", u)
	}
}

func TestParseCSV(t *testing.T) {
	in := "Name,Email,Password\nAda,ada@example.com,secretpass\nGrace,grace@example.com,\n"
	rows, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Name != "Ada" || rows[0].Email != "ada@example.com" || rows[0].Password != "secretpass" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Password != "" {
		t.Errorf("row 1 password = %q, want empty", rows[1].Password)
	}
}

func TestParseCSVMissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Name\nAda\n"))
	if err == nil || !strings.Contains(err.Error(), "missing column: email") {
		t.Errorf("err = %v, want missing column: email", err)
	}
}
