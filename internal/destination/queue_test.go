package destination

import (
	"context"
	"sync"
	"testing"
)

func TestQueueRunsTasksInOrder(t *testing.T) {
	q := NewQueue(context.Background(), "test", 16)
	defer q.Close()

	var mu sync.Mutex
	var order []int

	var done sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		done.Add(1)
		ok := q.Add(func(ctx context.Context) {
			defer done.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		if !ok {
			t.Fatalf("Add %d rejected on open queue", i)
		}
	}
	done.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("task %d ran out of order (got %d): %v", i, got, order)
		}
	}
}

func TestQueueCloseDrainsThenRejects(t *testing.T) {
	q := NewQueue(context.Background(), "test", 16)

	ran := false
	q.Add(func(ctx context.Context) { ran = true })
	q.Close()

	if !ran {
		t.Error("Close should drain queued tasks")
	}
	if q.Add(func(ctx context.Context) {}) {
		t.Error("Add should reject tasks after Close")
	}

	// Closing twice is safe.
	q.Close()
}

func TestQueueDiscardsTasksAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, "test", 16)

	cancel()

	ran := make(chan struct{}, 1)
	q.Add(func(ctx context.Context) { ran <- struct{}{} })
	q.Close()

	select {
	case <-ran:
		t.Error("task ran after context cancellation")
	default:
	}
}
