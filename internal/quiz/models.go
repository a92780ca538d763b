package quiz

import "encoding/json"

type Quiz struct {
	ID           int64  `json:"id"`
	ExperimentID int64  `json:"experiment_id"`
	Title        string `json:"title"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

type Question struct {
	ID      int64    `json:"id"`
	QuizID  int64    `json:"quiz_id,omitempty"`
	Text    string   `json:"question_text"`
	Options []Option `json:"options"`
}

// Option carries its correctness flag only for faculty views; it is nilled
// out before serving a quiz to students.
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"option_text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// QuestionDraft is an unvalidated question specification: manually authored,
// batch-imported, or produced by the AI collaborator. It accepts both
// "question" and "question_text" keys, matching what clients and the AI
// actually send.
type QuestionDraft struct {
	Text    string        `json:"question"`
	Options []OptionDraft `json:"options"`
}

// OptionDraft keeps IsCorrect as a pointer so a missing flag is
// distinguishable from an explicit false.
type OptionDraft struct {
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct"`
}

func (d *QuestionDraft) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question     string        `json:"question"`
		QuestionText string        `json:"question_text"`
		Options      []OptionDraft `json:"options"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Text = raw.Question
	if d.Text == "" {
		d.Text = raw.QuestionText
	}
	d.Options = raw.Options
	return nil
}

// AnswerInput is one submitted answer: the question and the option chosen.
type AnswerInput struct {
	QuestionID int64 `json:"question_id"`
	OptionID   int64 `json:"option_id"`
}

// Result is what a student sees after submitting.
type Result struct {
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correctCount"`
	TotalQuestions int     `json:"totalQuestions"`
}

type Attempt struct {
	ID             int64   `json:"id"`
	QuizID         int64   `json:"quiz_id,omitempty"`
	QuizTitle      string  `json:"title,omitempty"`
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	AttemptedAt    int64   `json:"attempted_at"`
}
