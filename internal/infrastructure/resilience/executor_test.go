package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

type observerFake struct {
	retries     []int
	transitions []string
}

func (o *observerFake) RetryAttempt(_ string, attempt int) { o.retries = append(o.retries, attempt) }

func (o *observerFake) BreakerStateChanged(_ string, from, to string) {
	o.transitions = append(o.transitions, from+"->"+to)
}

func fastRetry(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func retryIf(target error) ErrorClassifier {
	return func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, target), RecordFailure: true}
	}
}

func TestCallRetriesUntilValue(t *testing.T) {
	obs := &observerFake{}
	exec := NewExecutor(fastRetry(3)).WithObserver(obs)

	errBusy := errors.New("backend busy")
	attempts := 0
	got, err := Call(context.Background(), exec, "backend.review_dates", func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errBusy
		}
		return 42, nil
	}, retryIf(errBusy))
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got != 42 || attempts != 3 {
		t.Fatalf("unexpected result value=%d attempts=%d", got, attempts)
	}
	if len(obs.retries) != 2 || obs.retries[0] != 1 || obs.retries[1] != 2 {
		t.Fatalf("expected retry events for attempts 1 and 2, got %v", obs.retries)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastRetry(3))

	attempts := 0
	errRejected := errors.New("422 unprocessable")
	err := exec.Execute(context.Background(), "backend.process_invoices", func(context.Context) error {
		attempts++
		return errRejected
	}, func(error) ErrorClassification {
		return ErrorClassification{}
	})
	if !errors.Is(err, errRejected) {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsRetryingWhenContextEnds(t *testing.T) {
	cfg := fastRetry(5)
	cfg.RetryInitialBackoff = time.Second
	cfg.RetryMaxBackoff = time.Second
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errBusy := errors.New("busy")
	attempts := 0
	err := exec.Execute(ctx, "op", func(context.Context) error {
		attempts++
		cancel()
		return errBusy
	}, retryIf(errBusy))
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected last operation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected no retry after cancellation, got %d attempts", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	obs := &observerFake{}
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}).WithObserver(obs)

	errDown := errors.New("connection refused")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errDown
		}, classifier)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected backend error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if len(obs.transitions) != 1 || obs.transitions[0] != "closed->open" {
		t.Fatalf("expected closed->open transition, got %v", obs.transitions)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("expected default attempts, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RetryMaxBackoff != time.Second {
		t.Fatalf("max backoff must not be below initial backoff, got %s", cfg.RetryMaxBackoff)
	}
}

func TestStatusEventsConfigSkipsBreaker(t *testing.T) {
	cfg := StatusEventsConfig().normalize()
	if cfg.BreakerEnabled {
		t.Fatalf("status events must not use a breaker")
	}
	if cfg.RetryMaxAttempts != 2 || cfg.RetryMaxBackoff < cfg.RetryInitialBackoff {
		t.Fatalf("unexpected status events policy %+v", cfg)
	}
}
