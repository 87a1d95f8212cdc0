package graph

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryNode_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context, state TestState) (TestState, error) {
		attempts++
		if attempts < 3 {
			return state, errors.New("transient")
		}
		state.Count = attempts
		return state, nil
	}

	rn := NewRetryNode("flaky", fn, &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return true },
	})

	result, err := rn.Execute(context.Background(), TestState{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if result.Count != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Count)
	}
}

func TestRetryNode_NonRetryableErrorStopsImmediately(t *testing.T) {
	attempts := 0
	fn := func(ctx context.Context, state TestState) (TestState, error) {
		attempts++
		return state, errors.New("fatal")
	}

	rn := NewRetryNode("fatal-node", fn, &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return false },
	})

	if _, err := rn.Execute(context.Background(), TestState{}); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestAddNodeWithRetry_WiresIntoGraph(t *testing.T) {
	g := NewListenableStateGraphTyped[TestState]()
	attempts := 0
	AddNodeWithRetry(g, "flaky", "retries transient failures", func(ctx context.Context, state TestState) (TestState, error) {
		attempts++
		if attempts < 2 {
			return state, errors.New("transient")
		}
		return state, nil
	}, &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2.0, RetryableErrors: func(error) bool { return true }})

	if g.GetListenableNode("flaky") == nil {
		t.Fatal("expected node to be registered")
	}
}

func TestTimeoutNode_ReturnsErrorWhenExceeded(t *testing.T) {
	fn := func(ctx context.Context, state TestState) (TestState, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return state, nil
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}

	tn := NewTimeoutNode("slow", fn, 5*time.Millisecond)
	if _, err := tn.Execute(context.Background(), TestState{}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	fn := func(ctx context.Context, state TestState) (TestState, error) {
		return state, errors.New("boom")
	}

	cb := NewCircuitBreaker("unstable", fn, CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
		HalfOpenMaxCalls: 1,
	})

	if _, err := cb.Execute(context.Background(), TestState{}); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := cb.Execute(context.Background(), TestState{}); err == nil {
		t.Fatal("expected second call to fail and trip the breaker")
	}
	if cb.state != CircuitOpen {
		t.Fatalf("expected circuit to be open, got %v", cb.state)
	}

	if _, err := cb.Execute(context.Background(), TestState{}); err == nil {
		t.Fatal("expected call while open to be rejected without invoking fn")
	}
}

func TestRateLimiter_RejectsOverLimitCalls(t *testing.T) {
	fn := func(ctx context.Context, state TestState) (TestState, error) {
		return state, nil
	}

	rl := NewRateLimiter("bounded", fn, 1, time.Hour)

	if _, err := rl.Execute(context.Background(), TestState{}); err != nil {
		t.Fatalf("expected first call to succeed, got %v", err)
	}
	if _, err := rl.Execute(context.Background(), TestState{}); err == nil {
		t.Fatal("expected second call within the window to be rejected")
	}
}

func TestExponentialBackoffRetry_SucceedsEventually(t *testing.T) {
	attempts := 0
	result, err := ExponentialBackoffRetry(context.Background(), func() (any, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, 3, time.Millisecond)

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected result %q, got %v", "ok", result)
	}
}
