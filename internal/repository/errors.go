package repository

import "errors"

var (
	ErrElementNotFound = errors.New("element not found")
	ErrStaleElement    = errors.New("element is no longer attached to the document")
	ErrNotClickable    = errors.New("element cannot be clicked")
	ErrSessionClosed   = errors.New("browser session is closed")

	ErrTimeout    = errors.New("timed out")
	ErrExtraction = errors.New("extraction failed")
	ErrExport     = errors.New("export failed")
	ErrTransport  = errors.New("mail transport failed")
	ErrValidation = errors.New("validation failed")
)
