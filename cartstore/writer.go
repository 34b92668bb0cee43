// cartservice/cartstore/writer.go

package cartstore

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// writer flushes encoded carts to storage one at a time, in the order they were
// enqueued. Every enqueued payload gets exactly one Set attempt.
type writer struct {
	storage Storage
	key     string
	timeout time.Duration
	log     logrus.FieldLogger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []string
	enqueued uint64
	done     uint64
	progress chan struct{}
	closed   bool
	stopped  chan struct{}
}

func newWriter(storage Storage, key string, timeout time.Duration, log logrus.FieldLogger) *writer {
	w := &writer{
		storage:  storage,
		key:      key,
		timeout:  timeout,
		log:      log,
		progress: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// enqueue never blocks. It returns false once the writer is closed.
func (w *writer) enqueue(payload string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}
	w.queue = append(w.queue, payload)
	w.enqueued++
	w.cond.Signal()
	return true
}

func (w *writer) run() {
	defer close(w.stopped)

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		payload := w.queue[0]
		w.queue[0] = ""
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.write(payload)

		w.mu.Lock()
		w.done++
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

func (w *writer) write(payload string) {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.storage.Set(ctx, w.key, payload); err != nil {
		// Dropped: memory stays authoritative and the next mutation writes the full cart again.
		w.log.WithError(err).WithField("key", w.key).Warn("persisting cart failed")
		return
	}
	w.log.WithField("key", w.key).Debug("cart persisted")
}

// flush waits until every payload enqueued before the call has been attempted.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.enqueued
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if w.done >= target {
			w.mu.Unlock()
			return nil
		}
		ch := w.progress
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close stops accepting payloads and waits for the queue to drain.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
