package destination

import (
	"context"
	"log/slog"
	"sync"

	"github.com/solsticetv/hls-packager/internal/metrics"
)

// Queue serializes one destination's writes in arrival order. Two fragments
// must never race to rewrite the same playlist, so all of a destination's
// work funnels through a single worker goroutine, while different
// destinations overlap freely.
//
// The buffer bounds intake by destination latency: a slow destination pushes
// back on its own producer without unbounded buffering.
type Queue struct {
	name  string
	tasks chan func(context.Context)

	mu     sync.Mutex
	closed bool

	wg  sync.WaitGroup
	log *slog.Logger
}

// NewQueue starts the queue's worker. Tasks observe ctx; cancelling it makes
// the worker discard queued tasks without running them.
func NewQueue(ctx context.Context, name string, size int) *Queue {
	if size < 1 {
		size = 16
	}
	q := &Queue{
		name:  name,
		tasks: make(chan func(context.Context), size),
		log:   slog.With("component", "queue", "destination", name),
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for task := range q.tasks {
			if ctx.Err() != nil {
				continue
			}
			task(ctx)
			if m := metrics.Get(); m != nil {
				m.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.tasks)))
			}
		}
	}()

	return q
}

// Add enqueues a task after all previously added tasks. Blocks when the
// queue is full. Returns false once the queue is closed.
func (q *Queue) Add(task func(context.Context)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	q.tasks <- task
	if m := metrics.Get(); m != nil {
		m.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.tasks)))
	}
	return true
}

// Close stops accepting tasks and waits for the worker to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
}
