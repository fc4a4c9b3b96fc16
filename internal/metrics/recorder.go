package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/observability"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
)

// Recorder fans generation and probe events out to Prometheus, Sentry,
// CloudWatch and Langfuse. Nil sinks are skipped.
type Recorder struct {
	sentry     *SentryMetrics
	cloudwatch *Client
	langfuse   *observability.LangfuseClient
}

// NewRecorder creates a recorder over the given sinks
func NewRecorder(sentry *SentryMetrics, cloudwatch *Client, langfuse *observability.LangfuseClient) *Recorder {
	return &Recorder{sentry: sentry, cloudwatch: cloudwatch, langfuse: langfuse}
}

// ObserveGeneration records one completed backend call
func (r *Recorder) ObserveGeneration(ctx context.Context, event studio.GenerationEvent) {
	facet := string(event.Facet)
	success := event.Err == nil

	GenerationTotal.WithLabelValues(facet, event.Provider, statusLabel(event.Err)).Inc()
	GenerationDuration.WithLabelValues(facet, event.Provider).Observe(event.Duration.Seconds())
	if event.Usage.InputTokens > 0 {
		LLMTokensUsed.WithLabelValues(event.Provider, event.Model, "input").Add(float64(event.Usage.InputTokens))
	}
	if event.Usage.OutputTokens > 0 {
		LLMTokensUsed.WithLabelValues(event.Provider, event.Model, "output").Add(float64(event.Usage.OutputTokens))
	}

	if r.sentry != nil {
		r.sentry.RecordGenerationDuration(ctx, facet, event.Duration, success)
		if event.Usage.TotalTokens > 0 {
			r.sentry.RecordTokenUsage(ctx, event.Model, event.Usage)
		}
	}

	if r.cloudwatch != nil {
		r.cloudwatch.RecordGenerationDuration(facet, event.Duration, success)
		if event.Usage.TotalTokens > 0 {
			r.cloudwatch.RecordTokenUsage(event.Model, event.Usage.InputTokens, event.Usage.OutputTokens, event.Usage.TotalTokens)
		}
	}

	if r.langfuse.IsEnabled() {
		end := time.Now()
		r.langfuse.LogGeneration(observability.GenerationRecord{
			ProjectID: event.ProjectID,
			Facet:     facet,
			Provider:  event.Provider,
			Model:     event.Model,
			Input:     event.Prompt,
			Output:    event.Output,
			Usage:     event.Usage,
			Start:     end.Add(-event.Duration),
			End:       end,
			Err:       event.Err,
		})
	}
}

// RecordAPIRequest records one served HTTP request
func (r *Recorder) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if r.sentry != nil {
		r.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
	if r.cloudwatch != nil {
		r.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
	}
}

// ObserveProbe records one capability probe
func (r *Recorder) ObserveProbe(ctx context.Context, capability models.Capability, duration time.Duration, err error) {
	name := string(capability)
	ProbeTotal.WithLabelValues(name, statusLabel(err)).Inc()

	if r.sentry != nil {
		r.sentry.RecordProbe(ctx, name, duration, err == nil)
	}
	if r.cloudwatch != nil {
		r.cloudwatch.RecordProbe(name, err == nil)
	}
}
