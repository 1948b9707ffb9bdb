package service

import "errors"

// ErrProjectNotFound indicates the requested project is not in the catalog.
var ErrProjectNotFound = errors.New("project not found")

// ValidationCode identifies a grading or payload validation failure.
type ValidationCode string

// Validation failure codes. Messages carrying these codes are surfaced to the
// client verbatim.
const (
	CodeMissingGrade     ValidationCode = "missing_grade"
	CodeInvalidScore     ValidationCode = "invalid_score"
	CodeFeedbackTooShort ValidationCode = "feedback_too_short"
	CodeInvalidContent   ValidationCode = "invalid_content"
)

// ValidationError is a fail-closed validation failure: the submission is left
// untouched when one is returned.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StateCode identifies an illegal workflow transition.
type StateCode string

// State failure codes.
const (
	CodeStepLocked          StateCode = "step_locked"
	CodeDuplicateSubmission StateCode = "duplicate_submission"
	CodeSubmissionNotFound  StateCode = "submission_not_found"
	CodeAlreadyFinalized    StateCode = "already_finalized"
)

// StateError reports an operation attempted against a submission state that
// does not permit it.
type StateError struct {
	Code    StateCode
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}
