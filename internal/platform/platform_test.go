package platform

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	os.Setenv("AWS_REGION", "")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "us-east-1" {
		t.Fatalf("expected default region 'us-east-1', got %s", cfg.Region)
	}
}

func TestLoadAWSConfig_ExplicitRegion(t *testing.T) {
	os.Setenv("AWS_REGION", "eu-west-1")
	defer os.Unsetenv("AWS_REGION")

	cfg, err := LoadAWSConfig(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("region = %s, want eu-west-1", cfg.Region)
	}
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetrics_Count(t *testing.T) {
	cw := &fakeCloudWatch{}
	m := NewMetrics(cw, "AtelierCommerce")

	if err := m.Count(context.Background(), MetricOrdersPlaced, 1); err != nil {
		t.Fatalf("count: %v", err)
	}
	if len(cw.inputs) != 1 {
		t.Fatalf("put calls = %d, want 1", len(cw.inputs))
	}
	in := cw.inputs[0]
	if *in.Namespace != "AtelierCommerce" {
		t.Fatalf("namespace = %s", *in.Namespace)
	}
	if *in.MetricData[0].MetricName != MetricOrdersPlaced || *in.MetricData[0].Value != 1 {
		t.Fatalf("datum = %+v", in.MetricData[0])
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	if err := m.Count(context.Background(), MetricOrdersPlaced, 1); err != nil {
		t.Fatalf("nil metrics must be a no-op, got %v", err)
	}

	m = NewMetrics(nil, "ns")
	if err := m.Count(context.Background(), MetricOrdersPlaced, 1); err != nil {
		t.Fatalf("nil client must be a no-op, got %v", err)
	}
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, f.err
}

func TestPublisher_SendOrderMessage(t *testing.T) {
	q := &fakeSQS{}
	p := NewPublisher(q, "https://sqs.example.com/orders")

	err := p.SendOrderMessage(context.Background(), `{"order_id":"o1"}`, map[string]string{
		"order_id":       "o1",
		"correlation_id": "corr-1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(q.inputs) != 1 {
		t.Fatalf("sends = %d, want 1", len(q.inputs))
	}
	in := q.inputs[0]
	if *in.QueueUrl != "https://sqs.example.com/orders" {
		t.Fatalf("queue = %s", *in.QueueUrl)
	}
	if *in.MessageBody != `{"order_id":"o1"}` {
		t.Fatalf("body = %s", *in.MessageBody)
	}
	if *in.MessageAttributes["order_id"].StringValue != "o1" {
		t.Fatalf("attrs = %+v", in.MessageAttributes)
	}
}

func TestPublisher_SendError(t *testing.T) {
	q := &fakeSQS{err: errors.New("queue unavailable")}
	p := NewPublisher(q, "https://sqs.example.com/orders")

	if err := p.SendOrderMessage(context.Background(), "{}", nil); err == nil {
		t.Fatal("expected error to surface")
	}
}
