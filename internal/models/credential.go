package models

// Capability is one independently verifiable backend feature
type Capability string

const (
	CapabilityText     Capability = "text"
	CapabilityImage    Capability = "image"
	CapabilityProImage Capability = "pro_image"
)

// Capabilities lists every probed capability class
var Capabilities = []Capability{CapabilityText, CapabilityImage, CapabilityProImage}

// CapabilityStatus is the per-capability probe outcome
type CapabilityStatus string

const (
	StatusUntested    CapabilityStatus = "untested"
	StatusProbing     CapabilityStatus = "probing"
	StatusAvailable   CapabilityStatus = "available"
	StatusUnavailable CapabilityStatus = "unavailable"
)

// AggregateStatus is the overall verdict of a verification run
type AggregateStatus string

const (
	AggregateIdle           AggregateStatus = "idle"
	AggregateTesting        AggregateStatus = "testing"
	AggregateFullSuccess    AggregateStatus = "full_success"
	AggregatePartialSuccess AggregateStatus = "partial_success"
	AggregateFailure        AggregateStatus = "failure"
)

// CanProceed reports whether the caller may leave the credential gate
func (s AggregateStatus) CanProceed() bool {
	return s == AggregateFullSuccess || s == AggregatePartialSuccess
}

// TrustState is the ephemeral result of credential verification
type TrustState struct {
	Aggregate AggregateStatus  `json:"aggregate"`
	Text      CapabilityStatus `json:"text"`
	Image     CapabilityStatus `json:"image"`
	ProImage  CapabilityStatus `json:"proImage"`

	// Failures maps a capability to the reason its probe failed
	Failures map[Capability]string `json:"failures,omitempty"`
	Warning  string                `json:"warning,omitempty"`
}

// InitialTrustState returns the idle state with every capability untested
func InitialTrustState() TrustState {
	return TrustState{
		Aggregate: AggregateIdle,
		Text:      StatusUntested,
		Image:     StatusUntested,
		ProImage:  StatusUntested,
	}
}

// Status returns the status recorded for a capability
func (s TrustState) Status(c Capability) CapabilityStatus {
	switch c {
	case CapabilityText:
		return s.Text
	case CapabilityImage:
		return s.Image
	case CapabilityProImage:
		return s.ProImage
	}
	return StatusUntested
}

// SetStatus records the status for a capability
func (s *TrustState) SetStatus(c Capability, status CapabilityStatus) {
	switch c {
	case CapabilityText:
		s.Text = status
	case CapabilityImage:
		s.Image = status
	case CapabilityProImage:
		s.ProImage = status
	}
}
