package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchCollectsResults(t *testing.T) {
	fn := func(ctx context.Context, task *Task) *Result {
		n := task.Payload.(int)
		return &Result{TaskID: task.ID, Success: true, Data: n * 2}
	}

	pool, err := New(Config{Workers: 4, QueueSize: 16}, fn, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pool.Start()
	defer pool.Stop()

	chans := make([]<-chan *Result, 0, 8)
	for i := 0; i < 8; i++ {
		done, err := pool.Dispatch(&Task{ID: fmt.Sprintf("t-%d", i), Payload: i})
		if err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
		chans = append(chans, done)
	}

	for i, done := range chans {
		select {
		case res := <-done:
			if !res.Success {
				t.Errorf("task %d failed: %v", i, res.Error)
			}
			if res.Data.(int) != i*2 {
				t.Errorf("task %d data = %v, want %d", i, res.Data, i*2)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("task %d timed out", i)
		}
	}
}

func TestDispatchWait(t *testing.T) {
	fn := func(ctx context.Context, task *Task) *Result {
		return &Result{TaskID: task.ID, Success: false, Error: errors.New("boom")}
	}
	pool, err := New(Config{Workers: 1, QueueSize: 4}, fn, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pool.Start()
	defer pool.Stop()

	res, err := pool.DispatchWait(context.Background(), &Task{ID: "t-1"})
	if err != nil {
		t.Fatalf("dispatch wait: %v", err)
	}
	if res.Success || res.Error == nil {
		t.Errorf("result = %+v", res)
	}

	stats := pool.Stats()
	if stats.TasksFailed != 1 {
		t.Errorf("failed = %d", stats.TasksFailed)
	}
}

func TestDispatchWaitContextCancel(t *testing.T) {
	block := make(chan struct{})
	fn := func(ctx context.Context, task *Task) *Result {
		<-block
		return &Result{TaskID: task.ID, Success: true}
	}
	pool, err := New(Config{Workers: 1, QueueSize: 4}, fn, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pool.Start()
	defer func() {
		close(block)
		pool.Stop()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := pool.DispatchWait(ctx, &Task{ID: "t-1"}); err == nil {
		t.Error("want context error")
	}
}

func TestRetriesWithBackoff(t *testing.T) {
	var attempts int64
	fn := func(ctx context.Context, task *Task) *Result {
		n := atomic.AddInt64(&attempts, 1)
		if n < 3 {
			return &Result{TaskID: task.ID, Success: false, Error: errors.New("transient")}
		}
		return &Result{TaskID: task.ID, Success: true}
	}
	pool, err := New(Config{Workers: 1, QueueSize: 4, MaxRetries: 3, RetryDelay: time.Millisecond}, fn, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pool.Start()
	defer pool.Stop()

	res, err := pool.DispatchWait(context.Background(), &Task{ID: "t-1"})
	if err != nil {
		t.Fatalf("dispatch wait: %v", err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}
	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestDispatchAfterStop(t *testing.T) {
	fn := func(ctx context.Context, task *Task) *Result {
		return &Result{TaskID: task.ID, Success: true}
	}
	pool, err := New(Config{Workers: 1, QueueSize: 1, GracefulShutdownTimeout: time.Second}, fn, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	pool.Start()
	pool.Stop()

	if _, err := pool.Dispatch(&Task{ID: "t-1"}); err == nil {
		t.Error("dispatch after stop should fail")
	}
}

func TestNewRequiresWorkerFunc(t *testing.T) {
	if _, err := New(DefaultConfig(), nil, nil); err == nil {
		t.Error("nil worker function should be rejected")
	}
}
