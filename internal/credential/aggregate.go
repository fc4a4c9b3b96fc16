package credential

import "github.com/Conceptual-Machines/songsmith-api/internal/models"

// Aggregate derives the overall verdict from the three probe outcomes.
// Text decides whether the credential is usable at all; the image probes
// only decide between full and partial success.
func Aggregate(text, image, pro models.CapabilityStatus) models.AggregateStatus {
	if text != models.StatusAvailable {
		return models.AggregateFailure
	}
	if image == models.StatusAvailable && pro == models.StatusAvailable {
		return models.AggregateFullSuccess
	}
	return models.AggregatePartialSuccess
}
