package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/getsentry/sentry-go"
)

// SentryMetrics records spans for requests, generations and probes
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics(enabled bool) *SentryMetrics {
	return &SentryMetrics{enabled: enabled}
}

// spanResult describes a finished operation for record
type spanResult struct {
	op          string
	description string
	tags        map[string]string
	duration    time.Duration
	failed      sentry.SpanStatus // status used when ok is false
	ok          bool
}

func (m *SentryMetrics) record(ctx context.Context, r spanResult) {
	span := sentry.StartSpan(ctx, r.op)
	defer span.Finish()

	for k, v := range r.tags {
		span.SetTag(k, v)
	}
	span.SetTag("success", strconv.FormatBool(r.ok))
	span.SetData("duration_ms", r.duration.Milliseconds())
	span.Description = r.description

	span.Status = sentry.SpanStatusOK
	if !r.ok {
		span.Status = r.failed
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.record(ctx, spanResult{
		op:          "api.request",
		description: "API Request: " + endpoint,
		tags:        map[string]string{"endpoint": endpoint, "status_code": strconv.Itoa(statusCode)},
		duration:    duration,
		failed:      sentry.SpanStatusInternalError,
		ok:          statusCode < http.StatusBadRequest,
	})
}

// RecordTokenUsage tags the request transaction with the call's token usage
func (m *SentryMetrics) RecordTokenUsage(ctx context.Context, model string, usage llm.Usage) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("llm.model", model)
		transaction.SetData("llm.total_tokens", usage.TotalTokens)
		transaction.SetData("llm.input_tokens", usage.InputTokens)
		transaction.SetData("llm.output_tokens", usage.OutputTokens)
	}

	span := sentry.StartSpan(ctx, "llm.token_usage")
	defer span.Finish()
	span.SetTag("model", model)
	span.SetData("total_tokens", usage.TotalTokens)
	span.SetData("input_tokens", usage.InputTokens)
	span.SetData("output_tokens", usage.OutputTokens)
	span.Description = "Token Usage: " + model
}

// RecordGenerationDuration records one facet generation
func (m *SentryMetrics) RecordGenerationDuration(ctx context.Context, facet string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}
	m.record(ctx, spanResult{
		op:          "generation.request",
		description: "Generation: " + facet,
		tags:        map[string]string{"facet": facet},
		duration:    duration,
		failed:      sentry.SpanStatusInternalError,
		ok:          success,
	})
}

// RecordProbe records one capability probe. A failed probe is marked unavailable.
func (m *SentryMetrics) RecordProbe(ctx context.Context, capability string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}
	m.record(ctx, spanResult{
		op:          "credential.probe",
		description: "Capability Probe: " + capability,
		tags:        map[string]string{"capability": capability},
		duration:    duration,
		failed:      sentry.SpanStatusUnavailable,
		ok:          success,
	})
}
