package observability

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/config"
	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

// InitializeLangfuse creates the Langfuse client. The SDK reads its keys
// and host from the LANGFUSE_* environment variables.
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		return &LangfuseClient{enabled: false, ctx: ctx}
	}

	setEnvDefault("LANGFUSE_PUBLIC_KEY", cfg.LangfusePublicKey)
	setEnvDefault("LANGFUSE_SECRET_KEY", cfg.LangfuseSecretKey)
	setEnvDefault("LANGFUSE_HOST", cfg.LangfuseHost)

	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)
	return &LangfuseClient{
		client:  langfuse.New(ctx),
		enabled: true,
		ctx:     ctx,
	}
}

func setEnvDefault(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// GenerationRecord is one backend call as reported to Langfuse
type GenerationRecord struct {
	ProjectID string
	Facet     string
	Provider  string
	Model     string
	Input     string
	Output    string
	Usage     llm.Usage
	Start     time.Time
	End       time.Time
	Err       error
}

// LogGeneration records a trace holding a single generation for the call
func (c *LangfuseClient) LogGeneration(rec GenerationRecord) {
	if !c.IsEnabled() {
		return
	}

	cost := CalculateCost(rec.Model, rec.Usage)
	trace, err := c.client.Trace(&model.Trace{
		Name: "songsmith." + rec.Facet,
		Metadata: map[string]interface{}{
			"project_id": rec.ProjectID,
			"facet":      rec.Facet,
			"provider":   rec.Provider,
		},
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return
	}

	metadata := map[string]interface{}{
		"provider": rec.Provider,
		"cost_usd": FormatCost(cost),
	}
	if rec.Err != nil {
		metadata["error"] = rec.Err.Error()
	}

	gen := &model.Generation{
		TraceID:   trace.ID,
		Name:      rec.Facet,
		Model:     rec.Model,
		StartTime: &rec.Start,
		Input:     rec.Input,
		Metadata:  metadata,
		Usage: model.Usage{
			Input:     int(rec.Usage.InputTokens),
			Output:    int(rec.Usage.OutputTokens),
			Total:     int(rec.Usage.TotalTokens),
			Unit:      model.ModelUsageUnitTokens,
			TotalCost: cost,
		},
	}
	if rec.Output != "" {
		gen.Output = rec.Output
	}
	if rec.Err != nil {
		gen.Level = model.ObservationLevel("ERROR")
	}

	created, err := c.client.Generation(gen, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return
	}
	created.EndTime = &rec.End
	if _, err := c.client.GenerationEnd(created); err != nil {
		log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
	}
}

// Flush waits for queued events to be sent
func (c *LangfuseClient) Flush(ctx context.Context) {
	if c.IsEnabled() {
		c.client.Flush(ctx)
	}
}
