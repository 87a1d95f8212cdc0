package asyncrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_RetriesUntilSuccess(t *testing.T) {
	var attempts int32
	r := New(Options{Workers: 1, MaxAttempts: 3, BaseDelay: time.Millisecond})

	done := make(chan struct{})
	r.Submit(func(ctx context.Context) error {
		defer close(done)
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			return errors.New("transient failure")
		}
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	r.Stop()

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestRunner_GivesUpAfterMaxAttempts(t *testing.T) {
	var attempts int32
	r := New(Options{Workers: 1, MaxAttempts: 2, BaseDelay: time.Millisecond})

	done := make(chan struct{})
	r.Submit(func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent failure")
	})
	r.Submit(func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue never drained")
	}
	r.Stop()

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected exactly MaxAttempts=2 attempts, got %d", got)
	}
}

func TestRunner_SubmitDoesNotBlockWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	r := New(Options{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	defer func() {
		close(block)
		r.Stop()
	}()

	r.Submit(func(ctx context.Context) error {
		<-block
		return nil
	})
	// Queue is size 1 and the worker is busy on the task above; these
	// submissions must be dropped, not block the caller.
	for i := 0; i < 5; i++ {
		r.Submit(func(ctx context.Context) error { return nil })
	}
}
