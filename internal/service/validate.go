package service

import (
	"strings"

	"examia/internal/apperr"
	"examia/internal/model"
)

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateQuestion reports the first missing required field of q as a validation error.
// Whitespace-only text counts as missing. Values are never rewritten.
func ValidateQuestion(q model.Question) error {
	switch {
	case blank(q.Subject):
		return apperr.Validation("subject is required")
	case q.Year <= 0:
		return apperr.Validation("year is required")
	case q.Mode == "":
		return apperr.Validation("mode is required")
	case !q.Mode.Valid():
		return apperr.Validation("mode must be %q or %q", model.ModeChapters, model.ModePapers)
	case blank(q.Bucket):
		return apperr.Validation("bucket is required")
	case blank(q.Question):
		return apperr.Validation("question is required")
	}
	return nil
}
