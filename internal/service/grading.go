package service

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Minimum trimmed feedback lengths enforced by review decisions.
const (
	minRejectionFeedbackLen = 5
	minGradingFeedbackLen   = 10
)

// ValidateFinalGrading checks the grading payload required to approve the
// final step. Total score is accepted as any finite number; no upper bound is
// enforced.
func ValidateFinalGrading(grade string, totalScore *float64, feedback string) error {
	if strings.TrimSpace(grade) == "" {
		return &ValidationError{
			Code:    CodeMissingGrade,
			Message: "Grade is mandatory for final acceptance.",
		}
	}

	if totalScore == nil || math.IsNaN(*totalScore) || math.IsInf(*totalScore, 0) {
		return &ValidationError{
			Code:    CodeInvalidScore,
			Message: "Valid Total Score is mandatory for final acceptance.",
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(feedback)) < minGradingFeedbackLen {
		return &ValidationError{
			Code:    CodeFeedbackTooShort,
			Message: "Feedback of at least 10 characters is mandatory for final acceptance.",
		}
	}

	return nil
}

// ValidateRejection checks the feedback required to reject a step.
func ValidateRejection(feedback string) error {
	if utf8.RuneCountInString(strings.TrimSpace(feedback)) < minRejectionFeedbackLen {
		return &ValidationError{
			Code:    CodeFeedbackTooShort,
			Message: "Feedback is mandatory when rejecting a step.",
		}
	}
	return nil
}
