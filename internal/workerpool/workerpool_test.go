package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTask(t *testing.T) {
	p := New(2, 8)
	defer p.Close()

	var done int32
	var wg sync.WaitGroup
	wg.Add(1)
	if err := p.Submit(func() {
		atomic.StoreInt32(&done, 1)
		wg.Done()
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitOrTimeout(t, &wg, time.Second)
	if atomic.LoadInt32(&done) != 1 {
		t.Error("expected task to run")
	}
}

func TestSubmitReturnsErrQueueFullWhenSaturated(t *testing.T) {
	p := New(1, 1)
	defer p.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	// Occupy the single worker so the queue can fill up behind it, and
	// wait until the worker has taken that task off the queue.
	if err := p.Submit(func() { close(started); <-block }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started
	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	err := p.Submit(func() {})
	close(block)
	if err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for task")
	}
}
