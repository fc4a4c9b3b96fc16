package credential

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

var (
	// ErrEmptyCredential is returned when Verify is called without a credential
	ErrEmptyCredential = errors.New("credential is required")
	// ErrRunSuperseded is returned when a newer verification started before this one finished
	ErrRunSuperseded = errors.New("verification superseded by a newer run")
)

// ProbeFailure records why one capability probe failed
type ProbeFailure struct {
	Capability models.Capability
	Err        error
}

func (e *ProbeFailure) Error() string {
	return fmt.Sprintf("%s probe failed: %v", e.Capability, e.Err)
}

func (e *ProbeFailure) Unwrap() error { return e.Err }

// VerificationFailure is returned when the credential cannot be trusted at all.
// State holds the per-capability breakdown.
type VerificationFailure struct {
	State models.TrustState
	Err   error
}

func (e *VerificationFailure) Error() string {
	if e.Err == nil {
		return "credential verification failed"
	}
	return fmt.Sprintf("credential verification failed: %v", e.Err)
}

func (e *VerificationFailure) Unwrap() error { return e.Err }
