package queue

import (
	"context"
	"sync"
)

// Queue is the FIFO of pending submission ids. Push is called once per
// enqueued submission; workers block in Pop until an id is available.
// FIFO order is a delivery guarantee, not a completion guarantee:
// parallel workers finish out of order.
type Queue interface {
	Push(ctx context.Context, submissionID string) error
	Pop(ctx context.Context) (string, error)
	Len(ctx context.Context) (int, error)
}

// memoryQueue is the in-process backend, used by tests and single-node
// deployments without redis.
type memoryQueue struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
}

func NewMemoryQueue() Queue {
	return &memoryQueue{notify: make(chan struct{}, 1)}
}

func (q *memoryQueue) Push(_ context.Context, submissionID string) error {
	q.mu.Lock()
	q.items = append(q.items, submissionID)
	q.mu.Unlock()
	q.wake()
	return nil
}

func (q *memoryQueue) Pop(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Another waiter may have missed its wakeup token.
				q.wake()
			}
			return id, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *memoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

func (q *memoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
