package assistant

import "context"

// QueueMessage is one raw message pulled from the intake queue.
type QueueMessage struct {
	ID            string
	Body          []byte
	ReceiptHandle string
}

// Queue is the at-least-once intake source. Messages not deleted
// before the visibility timeout are redelivered.
type Queue interface {
	Receive(ctx context.Context) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Publisher enqueues inbound messages for the response worker.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}
