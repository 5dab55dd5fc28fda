package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Leptons1618/sia-proto/internal/health"
	"github.com/Leptons1618/sia-proto/internal/model"
)

func TestSendAndReceiveOrder(t *testing.T) {
	q := New(10, 10*time.Millisecond, nil)
	for i := 0; i < 5; i++ {
		ev := model.Event{EventID: fmt.Sprintf("cpu_%d", i)}
		if err := q.Send(ev); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	q.Close()

	i := 0
	for ev := range q.Events() {
		want := fmt.Sprintf("cpu_%d", i)
		if ev.EventID != want {
			t.Fatalf("event %d = %s, want %s", i, ev.EventID, want)
		}
		i++
	}
	if i != 5 {
		t.Fatalf("received %d events, want 5", i)
	}
}

func TestSendFullQueueDrops(t *testing.T) {
	h := health.New()
	q := New(2, 10*time.Millisecond, h)

	if err := q.Send(model.Event{EventID: "a"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := q.Send(model.Event{EventID: "b"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	err := q.Send(model.Event{EventID: "c"})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if got := q.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
	if got := h.Snapshot().DroppedEvents; got != 1 {
		t.Fatalf("health dropped = %d, want 1", got)
	}
}

func TestSendWaitsForCapacity(t *testing.T) {
	q := New(1, time.Second, nil)
	if err := q.Send(model.Event{EventID: "a"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-q.Events()
	}()

	if err := q.Send(model.Event{EventID: "b"}); err != nil {
		t.Fatalf("send should have waited for capacity: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := New(1, time.Millisecond, nil)
	q.Close()
	q.Close()

	if _, ok := <-q.Events(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestZeroCapacityUsesDefault(t *testing.T) {
	q := New(0, time.Millisecond, nil)
	if got := cap(q.ch); got != DefaultCapacity {
		t.Fatalf("capacity = %d, want %d", got, DefaultCapacity)
	}
}
