package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue and Publisher for local
// development and tests. Delivered messages re-enter the queue if not
// deleted within the redelivery delay.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []QueueMessage
	inflight map[string]QueueMessage
	delay    time.Duration
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue(redeliveryDelay time.Duration) *MemoryQueue {
	if redeliveryDelay <= 0 {
		redeliveryDelay = 30 * time.Second
	}
	return &MemoryQueue{
		inflight: make(map[string]QueueMessage),
		delay:    redeliveryDelay,
	}
}

func (q *MemoryQueue) Publish(_ context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.pending = append(q.pending, QueueMessage{ID: id, Body: body, ReceiptHandle: id})
	return nil
}

// Receive returns everything pending, up to ten messages, blocking
// briefly when the queue is empty so callers can poll in a tight loop.
func (q *MemoryQueue) Receive(ctx context.Context) ([]QueueMessage, error) {
	deadline := time.Now().Add(time.Second)
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			n := len(q.pending)
			if n > 10 {
				n = 10
			}
			batch := make([]QueueMessage, n)
			copy(batch, q.pending[:n])
			q.pending = q.pending[n:]
			for _, m := range batch {
				q.inflight[m.ReceiptHandle] = m
				q.scheduleRedelivery(m)
			}
			q.mu.Unlock()
			return batch, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, receiptHandle)
	return nil
}

// scheduleRedelivery requeues the message unless it was deleted in
// time. Caller holds the lock.
func (q *MemoryQueue) scheduleRedelivery(m QueueMessage) {
	time.AfterFunc(q.delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if _, still := q.inflight[m.ReceiptHandle]; still {
			delete(q.inflight, m.ReceiptHandle)
			q.pending = append(q.pending, m)
		}
	})
}
