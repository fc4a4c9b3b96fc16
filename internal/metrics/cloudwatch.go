package metrics

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace         = "Songsmith/API"
	cloudwatchTimeout = 5 * time.Second
)

// Client puts songsmith metrics into CloudWatch. Every Record call sends one
// PutMetricData request in the background.
type Client struct {
	client      *cloudwatch.Client
	enabled     bool
	environment string
}

// NewClient creates a new CloudWatch metrics client. Outside production it is a no-op.
func NewClient(ctx context.Context, environment string) (*Client, error) {
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{environment: environment}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{environment: environment}, nil
	}

	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)
	return &Client{
		client:      cloudwatch.NewFromConfig(cfg),
		enabled:     true,
		environment: environment,
	}, nil
}

// datum is one metric value before dimensions are attached
type datum struct {
	name  string
	value float64
	unit  types.StandardUnit
}

// RecordAPIRequest records a request count (or error count) and its latency
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	name := "APIRequests"
	if statusCode >= http.StatusInternalServerError {
		name = "APIErrors"
	}
	m.send(map[string]string{"Endpoint": endpoint},
		datum{name, 1, types.StandardUnitCount},
		datum{"APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds},
	)
}

// RecordTokenUsage records backend token usage per model
func (m *Client) RecordTokenUsage(model string, inputTokens, outputTokens, totalTokens int64) {
	m.send(map[string]string{"Model": model},
		datum{"Tokens/Input", float64(inputTokens), types.StandardUnitCount},
		datum{"Tokens/Output", float64(outputTokens), types.StandardUnitCount},
		datum{"Tokens/Total", float64(totalTokens), types.StandardUnitCount},
	)
}

// RecordProbe records one capability probe outcome
func (m *Client) RecordProbe(capability string, success bool) {
	m.send(map[string]string{"Capability": capability, "Success": strconv.FormatBool(success)},
		datum{"CapabilityProbes", 1, types.StandardUnitCount},
	)
}

// RecordGenerationDuration records the duration of one facet's backend call
func (m *Client) RecordGenerationDuration(facet string, duration time.Duration, success bool) {
	m.send(map[string]string{"Facet": facet, "Success": strconv.FormatBool(success)},
		datum{"GenerationDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds},
	)
}

// send puts the data with the given dimensions plus Environment
func (m *Client) send(dims map[string]string, data ...datum) {
	if !m.enabled || m.client == nil {
		return
	}

	dimensions := m.dimensions(dims)
	now := aws.Time(time.Now())
	metricData := make([]types.MetricDatum, len(data))
	for i, d := range data {
		metricData[i] = types.MetricDatum{
			MetricName: aws.String(d.name),
			Value:      aws.Float64(d.value),
			Unit:       d.unit,
			Timestamp:  now,
			Dimensions: dimensions,
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cloudwatchTimeout)
		defer cancel()

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(namespace),
			MetricData: metricData,
		})
		if err != nil {
			log.Printf("Failed to record %s metric: %v", data[0].name, err)
		}
	}()
}

// dimensions converts dims to CloudWatch dimensions in a stable order
func (m *Client) dimensions(dims map[string]string) []types.Dimension {
	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Dimension, 0, len(dims)+1)
	for _, name := range names {
		out = append(out, types.Dimension{Name: aws.String(name), Value: aws.String(dims[name])})
	}
	return append(out, types.Dimension{Name: aws.String("Environment"), Value: aws.String(m.environment)})
}
