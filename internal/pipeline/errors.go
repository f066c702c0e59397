package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrToolNotFound indicates a required external binary is absent.
var ErrToolNotFound = errors.New("tool not found")

// CaseError represents a harness-side failure while driving one case, such as
// an unwritable work directory. Tool failures are results, not CaseErrors.
type CaseError struct {
	CaseID    string    // Id of the case that failed
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewCaseError creates a new CaseError with the current timestamp.
func NewCaseError(id, msg string, err error) *CaseError {
	return &CaseError{
		CaseID:    id,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for CaseError.
func (e *CaseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("case %s: %s", e.CaseID, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *CaseError) Unwrap() error {
	return e.Err
}
