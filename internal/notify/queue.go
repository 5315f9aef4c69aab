package notify

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO with many producers and one consumer.
// Enqueue never blocks.
type Queue struct {
	mu    sync.Mutex
	items []Message
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends m to the tail.
func (q *Queue) Enqueue(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Next removes and returns the head, blocking until a message is available
// or ctx is done.
func (q *Queue) Next(ctx context.Context) (Message, error) {
	for {
		if m, ok := q.tryPop(); ok {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) tryPop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	m := q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return m, true
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Fanout copies every message onto each queue.
type Fanout []*Queue

func (f Fanout) Enqueue(m Message) {
	for _, q := range f {
		q.Enqueue(m)
	}
}
