package assistant

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the slice of the SQS client the queue uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSQueue adapts an SQS queue to the intake Queue and Publisher
// contracts. Visibility timeout on the queue itself provides the
// redelivery semantics.
type SQSQueue struct {
	client    SQSAPI
	queueURL  string
	waitSecs  int32
	batchSize int32
}

// NewSQSQueue creates the adapter. waitSecs enables long polling;
// batchSize caps one receive call at most 10 per the service limit.
func NewSQSQueue(client SQSAPI, queueURL string, waitSecs, batchSize int) *SQSQueue {
	if client == nil {
		panic("assistant: sqs client cannot be nil")
	}
	if queueURL == "" {
		panic("assistant: queue url cannot be empty")
	}
	if waitSecs <= 0 || waitSecs > 20 {
		waitSecs = 10
	}
	if batchSize <= 0 || batchSize > 10 {
		batchSize = 10
	}
	return &SQSQueue{
		client:    client,
		queueURL:  queueURL,
		waitSecs:  int32(waitSecs),
		batchSize: int32(batchSize),
	}
}

func (q *SQSQueue) Receive(ctx context.Context) ([]QueueMessage, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: q.batchSize,
		WaitTimeSeconds:     q.waitSecs,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to receive from queue: %w", err)
	}

	msgs := make([]QueueMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, QueueMessage{
			ID:            aws.ToString(m.MessageId),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("assistant: failed to delete message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Publish(ctx context.Context, body []byte) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("assistant: failed to publish message: %w", err)
	}
	return nil
}
