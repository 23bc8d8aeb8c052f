package usecase

import (
	"fmt"
	"time"

	"github.com/user/headline-scraper/internal/repository"
)

// TimeoutError is returned when a wait exhausts its budget.
type TimeoutError struct {
	What    string
	Timeout time.Duration
	Cause   error // last probe error, if any
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("timed out after %s waiting for %s: %v", e.Timeout, e.What, e.Cause)
	}
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
}

func (e *TimeoutError) Unwrap() error        { return e.Cause }
func (e *TimeoutError) Is(target error) bool { return target == repository.ErrTimeout }

// ExtractionError is a failed attempt at reading one headline container.
type ExtractionError struct {
	Index   int // zero-based position of the container on its page
	Attempt int
	Cause   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract container %d (attempt %d): %v", e.Index, e.Attempt, e.Cause)
}

func (e *ExtractionError) Unwrap() error        { return e.Cause }
func (e *ExtractionError) Is(target error) bool { return target == repository.ErrExtraction }

// ExportError is a failed write of one export format.
type ExportError struct {
	Format string
	Path   string
	Cause  error
}

func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export %s to %s: %v", e.Format, e.Path, e.Cause)
	}
	return fmt.Sprintf("export %s: %v", e.Format, e.Cause)
}

func (e *ExportError) Unwrap() error        { return e.Cause }
func (e *ExportError) Is(target error) bool { return target == repository.ErrExport }

// TransportError is a failed attempt at handing a message to the mail server.
type TransportError struct {
	Recipient string
	Attempt   int
	Cause     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send mail to %s (attempt %d): %v", e.Recipient, e.Attempt, e.Cause)
}

func (e *TransportError) Unwrap() error        { return e.Cause }
func (e *TransportError) Is(target error) bool { return target == repository.ErrTransport }

// ValidationError rejects malformed input before any side effect happens.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == repository.ErrValidation }
