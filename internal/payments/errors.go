package payments

import (
	"errors"
	"strings"

	"github.com/steemit/birthday-payments/internal/db"
)

var (
	// ErrInvalidID is returned for identifiers that are not 24-hex ObjectIDs
	ErrInvalidID = errors.New("invalid payment id")
	// ErrNotFound is returned when no payment has the identifier
	ErrNotFound = db.ErrNotFound
)

// ValidationError carries every violated field rule of a payload
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
