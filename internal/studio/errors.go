package studio

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrBlockNotFound   = errors.New("block not found")
	ErrTemplateUnknown = errors.New("unknown structure template")
	// ErrSuperseded is returned when a newer call for the same facet started
	// before this one completed; the project is left untouched
	ErrSuperseded = errors.New("generation superseded by a newer request")
	// ErrNoCredential is returned when no credential is stored or configured
	ErrNoCredential = errors.New("no credential available")
)

// ValidationError reports invalid input to a project operation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
