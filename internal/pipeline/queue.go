// Package pipeline connects the collectors to the analyzer: a bounded,
// ordered, multi-producer/single-consumer queue.
package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/model"
)

// ErrQueueFull is returned when an event cannot be enqueued within the send
// timeout. The caller drops the event; the drop is counted, never silent.
var ErrQueueFull = errors.New("event queue full")

const DefaultCapacity = 10000

type Queue struct {
	ch          chan model.Event
	sendTimeout time.Duration
	health      *health.Health

	dropped   atomic.Uint64
	closeOnce sync.Once
}

func New(capacity int, sendTimeout time.Duration, h *health.Health) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:          make(chan model.Event, capacity),
		sendTimeout: sendTimeout,
		health:      h,
	}
}

// Send enqueues an event, waiting at most the send timeout for capacity.
// Producers must not call Send after Close.
func (q *Queue) Send(ev model.Event) error {
	select {
	case q.ch <- ev:
		return nil
	default:
	}

	t := time.NewTimer(q.sendTimeout)
	defer t.Stop()
	select {
	case q.ch <- ev:
		return nil
	case <-t.C:
		q.dropped.Add(1)
		if q.health != nil {
			q.health.EventDropped()
		}
		return ErrQueueFull
	}
}

// Events is the consumer side. Ranging over it drains remaining events after
// Close, then terminates.
func (q *Queue) Events() <-chan model.Event {
	return q.ch
}

// Close signals the consumer that no further events will arrive. Call only
// after all producers have stopped.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
