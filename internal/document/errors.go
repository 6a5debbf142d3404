package document

import "errors"

// Lifecycle failures. Callers match with errors.Is; the wrapped message is
// meant for humans.
var (
	ErrNotFound          = errors.New("document not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid document state")
	ErrValidation        = errors.New("validation failed")
	ErrRecipientNotFound = errors.New("recipient not found")
)
