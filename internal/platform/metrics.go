package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted by the order/payment workflow.
const (
	MetricOrdersPlaced          = "OrdersPlaced"
	MetricInsufficientStock     = "InsufficientStock"
	MetricPaymentsSettled       = "PaymentsSettled"
	MetricPaymentsFailed        = "PaymentsFailed"
	MetricPaymentAmountMismatch = "PaymentAmountMismatch"
	MetricNotificationsSent     = "NotificationsSent"
)

// Metrics publishes counters to CloudWatch. All methods are safe on a nil
// receiver so callers can skip wiring metrics in tests.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics publisher bound to a namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

// Count emits a single count datapoint. Failures are returned so the caller
// can log them; metrics must never sit on the critical path.
func (m *Metrics) Count(ctx context.Context, name string, value float64) error {
	if m == nil || m.client == nil {
		return nil
	}
	now := m.nowFunc()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      &value,
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}
