package ai

import (
	"context"
	"database/sql"
	"time"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
)

// History is the append-only log of tutor exchanges.
type History struct {
	db *sql.DB
}

func NewHistory(dbh *sql.DB) *History { return &History{db: dbh} }

func (h *History) Append(ctx context.Context, studentID, experimentID int64, userMessage, aiResponse string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO chat_messages (student_id, experiment_id, user_message, ai_response, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		studentID, experimentID, userMessage, aiResponse, time.Now().Unix())
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record chat message", err)
	}
	return nil
}
