package broadcast

import "sync"

// workQueue hands recipient ids to workers in FIFO order. It is pre-seeded
// with every recipient followed by one stop sentinel per worker, so each
// worker observes termination exactly once without a shared stop flag.
//
// Entries are never requeued; retry lives inside the worker that dequeued the
// recipient. drain blocks until every entry, sentinels included, has been
// acknowledged with ack.
type workQueue struct {
	ch chan queueItem
	wg sync.WaitGroup
}

type queueItem struct {
	id   int64
	stop bool
}

func newWorkQueue(recipients []int64, workers int) *workQueue {
	q := &workQueue{ch: make(chan queueItem, len(recipients)+workers)}
	for _, id := range recipients {
		q.wg.Add(1)
		q.ch <- queueItem{id: id}
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		q.ch <- queueItem{stop: true}
	}
	return q
}

func (q *workQueue) pop() queueItem { return <-q.ch }

func (q *workQueue) ack() { q.wg.Done() }

func (q *workQueue) drain() { q.wg.Wait() }
