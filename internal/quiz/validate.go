package quiz

import (
	"fmt"
	"strings"

	"github.com/sciencelab/sciencelab-lms/internal/apperr"
)

// OptionRule is the option-cardinality policy for a question source.
// Manual authoring allows any count from two up; AI drafts must have exactly
// four so malformed generations are rejected rather than repaired.
type OptionRule struct {
	Min   int
	Exact int
}

var (
	ManualOptions    = OptionRule{Min: 2}
	GeneratedOptions = OptionRule{Exact: 4}
)

func (r OptionRule) describe() string {
	if r.Exact > 0 {
		return fmt.Sprintf("options must be an array of exactly %d items", r.Exact)
	}
	return fmt.Sprintf("options must be an array with at least %d items", r.Min)
}

func (r OptionRule) ok(n int) bool {
	if r.Exact > 0 {
		return n == r.Exact
	}
	return n >= r.Min
}

// ValidateDraft checks one question specification and trims its text fields
// in place. It returns every violated rule, not just the first.
func ValidateDraft(d *QuestionDraft, rule OptionRule) []string {
	var errs []string

	d.Text = strings.TrimSpace(d.Text)
	if d.Text == "" {
		errs = append(errs, "question text must be a non-empty string")
	}

	if !rule.ok(len(d.Options)) {
		errs = append(errs, rule.describe())
	}

	correct := 0
	for i := range d.Options {
		opt := &d.Options[i]
		opt.Text = strings.TrimSpace(opt.Text)
		if opt.Text == "" {
			errs = append(errs, fmt.Sprintf("options[%d].text must be a non-empty string", i))
		}
		if opt.IsCorrect == nil {
			errs = append(errs, fmt.Sprintf("options[%d].is_correct must be a boolean", i))
			continue
		}
		if *opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		errs = append(errs, "exactly one option must have is_correct=true")
	}
	return errs
}

// ValidateBatch validates every draft before anything is written, collecting
// per-index reports. Drafts are sanitized in place; a nil return means the
// whole batch may be persisted.
func ValidateBatch(drafts []QuestionDraft, rule OptionRule) []apperr.ItemError {
	var invalid []apperr.ItemError
	for i := range drafts {
		if errs := ValidateDraft(&drafts[i], rule); len(errs) > 0 {
			invalid = append(invalid, apperr.ItemError{Index: i, Errors: errs})
		}
	}
	return invalid
}
