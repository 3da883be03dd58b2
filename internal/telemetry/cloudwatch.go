// Package telemetry publishes request and secret retrieval metrics to
// CloudWatch. Each Record call publishes synchronously on the caller's
// goroutine, bounded by publishTimeout. Failures are logged and never returned
// to the caller. While CloudWatch keeps failing the circuit breaker opens and
// publishing is skipped without a network call.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/sony/gobreaker/v2"

	"devopsdemo/internal/types"
)

// publishTimeout bounds a single PutMetricData call.
const publishTimeout = 2 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// BreakerSettings returns the circuit breaker configuration used for metric
// publishing. It opens after five consecutive failures and probes again after
// thirty seconds.
func BreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// CloudWatchMetrics emits API and retrieval metrics to a CloudWatch namespace.
//
// Metrics emitted:
//   - APIRequestCount: Dims {Method, Endpoint, Status}
//   - APILatency: Dims {Method, Endpoint}
//   - SecretRetrieval: Dims {Outcome}
//   - SecretRetrievalLatency: no dims
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	breaker   *gobreaker.CircuitBreaker[*cloudwatch.PutMetricDataOutput]
}

// NewCloudWatchMetrics creates a publisher for namespace. A nil logger falls
// back to slog.Default.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	return newCloudWatchMetrics(client, namespace, logger, BreakerSettings("cloudwatch-metrics"))
}

func newCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger, st gobreaker.Settings) *CloudWatchMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	m := &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		m.logger.Warn("metrics circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}
	m.breaker = gobreaker.NewCircuitBreaker[*cloudwatch.PutMetricDataOutput](st)
	return m
}

// RecordRequest emits APIRequestCount and APILatency for one HTTP request.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				dimension(types.DimMethod, method),
				dimension(types.DimEndpoint, endpoint),
				dimension(types.DimStatus, status),
			},
		},
		{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{
				dimension(types.DimMethod, method),
				dimension(types.DimEndpoint, endpoint),
			},
		},
	}

	if err := m.publish(context.Background(), data); err != nil {
		m.logger.Error("failed to record request metric",
			"error", err.Error(),
			"method", method,
			"endpoint", endpoint,
			"status", status,
		)
	}
}

// RecordRetrieval emits SecretRetrieval and SecretRetrievalLatency for one
// secret lookup. outcome is "success" or the failure kind.
func (m *CloudWatchMetrics) RecordRetrieval(ctx context.Context, outcome string, duration time.Duration) {
	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String(types.MetricSecretRetrieval),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{dimension(types.DimOutcome, outcome)},
		},
		{
			MetricName: aws.String(types.MetricSecretRetrievalLatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
		},
	}

	// The request context may already be cancelled by the time the
	// metric is flushed.
	if err := m.publish(context.WithoutCancel(ctx), data); err != nil {
		m.logger.Error("failed to record retrieval metric",
			"error", err.Error(),
			"outcome", outcome,
		)
	}
}

// publish sends data through the circuit breaker. An open breaker drops the
// batch and returns nil.
func (m *CloudWatchMetrics) publish(ctx context.Context, data []cwtypes.MetricDatum) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err := m.breaker.Execute(func() (*cloudwatch.PutMetricDataOutput, error) {
		return m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data,
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil
	}
	return err
}

// State reports the circuit breaker state.
func (m *CloudWatchMetrics) State() gobreaker.State {
	return m.breaker.State()
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
