package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastConfig(budget int) Config {
	return Config{Interval: time.Millisecond, FailureBudget: budget}
}

func TestRunSuspendsAfterFailureBudget(t *testing.T) {
	attempts := 0
	err := Run(context.Background(), fastConfig(3), testLogger(), func(ctx context.Context) error {
		attempts++
		return errors.New("endpoint down")
	})
	if !errors.Is(err, ErrSuspended) {
		t.Fatalf("err = %v, want ErrSuspended", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunRecoversFromTransientFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	err := Run(ctx, fastConfig(3), testLogger(), func(ctx context.Context) error {
		attempts++
		switch {
		case attempts <= 2:
			return errors.New("transient")
		case attempts < 10:
			// Success resets the consecutive-failure count.
			return nil
		case attempts <= 11:
			return errors.New("transient again")
		default:
			cancel()
			return nil
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// Two separate failure runs of 2 each never reached the budget of 3.
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	polls := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, fastConfig(5), testLogger(), func(ctx context.Context) error {
			select {
			case polls <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	<-polls
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("poller leaked after cancellation")
	}
}

func TestRunPollsImmediately(t *testing.T) {
	cfg := Config{Interval: time.Hour, FailureBudget: 1}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	polled := false
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, testLogger(), func(ctx context.Context) error {
			polled = true
			cancel()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first poll should not wait for the interval")
	}
	if !polled {
		t.Error("expected an immediate first poll")
	}
}
