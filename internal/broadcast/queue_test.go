package broadcast

import (
	"testing"
	"time"
)

func TestWorkQueueOrderAndSentinels(t *testing.T) {
	t.Parallel()
	q := newWorkQueue([]int64{10, 20, 30}, 2)

	for _, want := range []int64{10, 20, 30} {
		it := q.pop()
		if it.stop {
			t.Fatalf("unexpected sentinel before recipients")
		}
		if it.id != want {
			t.Fatalf("dequeued %d, want %d", it.id, want)
		}
		q.ack()
	}
	for i := 0; i < 2; i++ {
		it := q.pop()
		if !it.stop {
			t.Fatalf("expected sentinel, got recipient %d", it.id)
		}
		q.ack()
	}

	done := make(chan struct{})
	go func() {
		q.drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return after all entries were acknowledged")
	}
}

func TestWorkQueueDrainBlocksUntilAck(t *testing.T) {
	t.Parallel()
	q := newWorkQueue([]int64{1}, 1)

	done := make(chan struct{})
	go func() {
		q.drain()
		close(done)
	}()

	q.pop() // recipient, not yet acknowledged
	select {
	case <-done:
		t.Fatal("drain returned with entries outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	q.ack()
	q.pop()
	q.ack() // sentinel
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return")
	}
}
