package roster

import (
	"context"
	"database/sql"
	"time"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
)

// AuditStore keeps the append-only bulk_uploads history.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(dbh *sql.DB) *AuditStore { return &AuditStore{db: dbh} }

type Upload struct {
	ID         int64  `json:"id"`
	FacultyID  int64  `json:"faculty_id"`
	Filename   string `json:"filename"`
	Total      int    `json:"total_students"`
	Successful int    `json:"successful_uploads"`
	Failed     int    `json:"failed_uploads"`
	Status     string `json:"status"`
	UploadedAt int64  `json:"uploaded_at"`
}

func (s *AuditStore) Record(ctx context.Context, facultyID int64, filename string, rep Report) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bulk_uploads (faculty_id, filename, total_students, successful_uploads, failed_uploads, status, uploaded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		facultyID, filename, rep.Total, rep.Successful, rep.Failed, "completed", time.Now().Unix())
	return err
}

func (s *AuditStore) History(ctx context.Context, facultyID int64) ([]Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, faculty_id, filename, total_students, successful_uploads, failed_uploads, status, uploaded_at
		 FROM bulk_uploads WHERE faculty_id=$1 ORDER BY uploaded_at DESC`, facultyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load upload history", err)
	}
	defer rows.Close()
	out := []Upload{}
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.FacultyID, &u.Filename, &u.Total, &u.Successful, &u.Failed, &u.Status, &u.UploadedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan upload", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
