package platform

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Publisher is the post-commit outbox for order events. Checkout publishes a
// confirmation event here after the order transaction lands; cmd/worker
// consumes the queue and delivers the notification.
type Publisher struct {
	sqs      SQSAPI
	queueURL string
}

// NewPublisher binds a publisher to the order events queue.
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{sqs: client, queueURL: queueURL}
}

// SendOrderMessage enqueues one order event. messageBody is the JSON payload;
// attributes become string-typed SQS message attributes so consumers can
// route or trace without parsing the body.
func (p *Publisher) SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]sqstypes.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: &v,
			}
		}
	}

	if _, err := p.sqs.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send order event: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
