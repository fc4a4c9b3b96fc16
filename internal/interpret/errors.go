package interpret

import (
	"fmt"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

// ParseError reports a structured response that does not match its schema
type ParseError struct {
	Facet  models.Facet
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "generation parse error"
	if e.Facet != "" {
		msg += " (" + string(e.Facet) + ")"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyError reports a free-text response with no text
type EmptyError struct {
	Facet models.Facet
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("generation returned no text (%s)", e.Facet)
}

// NoImageError reports an image response without a binary payload
type NoImageError struct {
	// Text holds whatever text the backend sent instead
	Text string
}

func (e *NoImageError) Error() string {
	if e.Text != "" {
		return "no image generated: backend replied with text only"
	}
	return "no image generated"
}

// InvalidValueError reports a numeric extraction that is absent or out of range
type InvalidValueError struct {
	Raw   string
	Value int
	Found bool
}

func (e *InvalidValueError) Error() string {
	if !e.Found {
		return fmt.Sprintf("no numeric value found in %q", truncate(e.Raw, 80))
	}
	return fmt.Sprintf("value %d is outside the plausible range", e.Value)
}

// BackendError wraps a transport-level failure from the generation backend
type BackendError struct {
	Facet    models.Facet
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend failed for %s: %v", e.Provider, e.Facet, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
