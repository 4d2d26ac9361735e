package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes operational metrics to CloudWatch.
// Publishing is best-effort; a metrics failure never fails the operation
// being measured.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// CountMatchComputed records a completed match ranking with its candidate pool size
func (m *Metrics) CountMatchComputed(ctx context.Context, candidates int) {
	m.put(ctx,
		datum("MatchComputations", 1, types.StandardUnitCount),
		datum("MatchCandidatesScored", float64(candidates), types.StandardUnitCount),
	)
}

// CountConnectionCreated records an actual connection insert (not an idempotent fetch)
func (m *Metrics) CountConnectionCreated(ctx context.Context) {
	m.put(ctx, datum("ConnectionsCreated", 1, types.StandardUnitCount))
}

// CountConnectionCompleted records a both-sides-accepted transition
func (m *Metrics) CountConnectionCompleted(ctx context.Context) {
	m.put(ctx, datum("ConnectionsCompleted", 1, types.StandardUnitCount))
}

// CountNotification records a push notification attempt and its outcome
func (m *Metrics) CountNotification(ctx context.Context, delivered bool) {
	name := "NotificationsDelivered"
	if !delivered {
		name = "NotificationsFailed"
	}
	m.put(ctx, datum(name, 1, types.StandardUnitCount))
}

// RecordDuration records an operation latency in milliseconds
func (m *Metrics) RecordDuration(ctx context.Context, operation string, d time.Duration) {
	m.put(ctx, datum(operation+"Duration", float64(d.Milliseconds()), types.StandardUnitMilliseconds))
}

func (m *Metrics) put(ctx context.Context, data ...types.MetricDatum) {
	if m == nil || m.client == nil {
		return
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	// Errors are swallowed; metrics must never break requests
	_, _ = m.client.PutMetricData(ctx, input)
}

func datum(name string, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
}
