package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jobward/jobward"
	"github.com/jobward/jobward/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoolExecutesSubmittedTasks(t *testing.T) {
	pool := worker.NewPool(testLogger(), worker.WithPoolConcurrency(2))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0

	for range 5 {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
	}

	wg.Wait()
	if ran != 5 {
		t.Errorf("ran = %d, want 5", ran)
	}

	if err := pool.Stop(context.Background()); err != nil {
		t.Errorf("Stop error: %v", err)
	}
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	pool := worker.NewPool(testLogger())

	err := pool.Submit(func() {})
	if !errors.Is(err, jobward.ErrPoolStopped) {
		t.Errorf("Submit before Start = %v, want ErrPoolStopped", err)
	}
}

func TestPoolSubmitAfterStop(t *testing.T) {
	pool := worker.NewPool(testLogger(), worker.WithPoolConcurrency(1))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	err := pool.Submit(func() {})
	if !errors.Is(err, jobward.ErrPoolStopped) {
		t.Errorf("Submit after Stop = %v, want ErrPoolStopped", err)
	}
}

func TestPoolSaturation(t *testing.T) {
	pool := worker.NewPool(testLogger(),
		worker.WithPoolConcurrency(1),
		worker.WithPoolQueueDepth(1),
	)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	block := make(chan struct{})
	started := make(chan struct{})

	// Occupy the single worker.
	if err := pool.Submit(func() {
		close(started)
		<-block
	}); err != nil {
		t.Fatalf("Submit (blocking task) error: %v", err)
	}
	<-started

	// Fill the queue slot.
	if err := pool.Submit(func() {}); err != nil {
		t.Fatalf("Submit (queued task) error: %v", err)
	}

	// The next submission must fail fast.
	err := pool.Submit(func() {})
	if !errors.Is(err, jobward.ErrPoolSaturated) {
		t.Errorf("Submit on full pool = %v, want ErrPoolSaturated", err)
	}

	close(block)
	if err := pool.Stop(context.Background()); err != nil {
		t.Errorf("Stop error: %v", err)
	}
}

func TestPoolStopDrainsQueuedTasks(t *testing.T) {
	pool := worker.NewPool(testLogger(),
		worker.WithPoolConcurrency(1),
		worker.WithPoolQueueDepth(4),
	)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	block := make(chan struct{})
	started := make(chan struct{})
	if err := pool.Submit(func() {
		close(started)
		<-block
	}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	<-started

	var mu sync.Mutex
	drained := 0
	for range 3 {
		if err := pool.Submit(func() {
			mu.Lock()
			drained++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit error: %v", err)
		}
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- pool.Stop(context.Background()) }()

	close(block)
	if err := <-stopDone; err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if drained != 3 {
		t.Errorf("drained = %d, want 3 queued tasks run before stop", drained)
	}
}

func TestPoolStopHonorsContextDeadline(t *testing.T) {
	pool := worker.NewPool(testLogger(), worker.WithPoolConcurrency(1))
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	block := make(chan struct{})
	started := make(chan struct{})
	if err := pool.Submit(func() {
		close(started)
		<-block
	}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := pool.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop with stuck task = %v, want DeadlineExceeded", err)
	}

	close(block)
}
