package ledger

import "errors"

var (
	// ErrNotFound means the referenced idea does not exist.
	ErrNotFound = errors.New("idea not found")
	// ErrDuplicateVote means the user already voted for this idea.
	ErrDuplicateVote = errors.New("already voted for this idea")
	// ErrQuotaExceeded means the user spent all votes for the period.
	ErrQuotaExceeded = errors.New("vote quota exceeded for this period")
)

// ValidationError rejects bad user input; Message is safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
