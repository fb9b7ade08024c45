package cart

import (
	"context"
	"sync"
)

type remoteWrite struct {
	op        string
	userID    string
	productID string
	parent    context.Context
	do        func(ctx context.Context) error

	// set on flush barriers only
	done chan struct{}
}

// writeQueue runs remote writes one at a time in the order they were queued.
type writeQueue struct {
	ch      chan remoteWrite
	stopped chan struct{}
	once    sync.Once
}

func newWriteQueue(size int, run func(remoteWrite)) *writeQueue {
	q := &writeQueue{
		ch:      make(chan remoteWrite, size),
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(q.stopped)
		for w := range q.ch {
			if w.done != nil {
				close(w.done)
				continue
			}
			run(w)
		}
	}()
	return q
}

func (q *writeQueue) push(w remoteWrite) {
	q.ch <- w
}

// close drains what is already queued and waits for the worker to exit.
func (q *writeQueue) close() {
	q.once.Do(func() { close(q.ch) })
	<-q.stopped
}
