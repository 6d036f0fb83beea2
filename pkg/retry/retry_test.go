package retry

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/photovariant/photovariant/pkg/errors"
)

func fastConfig() Config {
	config := DefaultConfig()
	config.InitialDelay = time.Millisecond
	config.MaxDelay = 5 * time.Millisecond
	config.Jitter = false
	return config
}

func attempt(r *Retryer, fn func() error) error {
	return r.DoWithContext(context.Background(), func(context.Context) error { return fn() })
}

func TestRetryer_UploadSucceedsFirstTime(t *testing.T) {
	retryer := New(fastConfig())

	attempts := 0
	err := attempt(retryer, func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_SlowDownIsRetried(t *testing.T) {
	retryer := New(fastConfig())

	attempts := 0
	err := attempt(retryer, func() error {
		attempts++
		if attempts < 3 {
			return errors.NewError(errors.ErrCodeStorageWrite, "503 slow down")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_UncodedErrorIsRetried(t *testing.T) {
	retryer := New(fastConfig())

	attempts := 0
	_ = attempt(retryer, func() error {
		attempts++
		return stderrors.New("connection reset by peer")
	})

	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_AccessDeniedIsNotRetried(t *testing.T) {
	retryer := New(fastConfig())

	attempts := 0
	testErr := errors.NewError(errors.ErrCodeAccessDenied, "access denied")
	err := attempt(retryer, func() error {
		attempts++
		return testErr
	})

	if !stderrors.Is(err, testErr) {
		t.Errorf("Expected the original error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry), got %d", attempts)
	}
}

func TestRetryer_MaxAttemptsExceeded(t *testing.T) {
	config := fastConfig()
	config.MaxAttempts = 4
	retryer := New(config)

	attempts := 0
	testErr := errors.NewError(errors.ErrCodeStorageWrite, "write failed")
	err := attempt(retryer, func() error {
		attempts++
		return testErr
	})

	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}
	if err == nil || !strings.Contains(err.Error(), "max retry attempts (4) exceeded") {
		t.Errorf("Expected exhaustion error, got %v", err)
	}
	if !errors.HasCode(err, errors.ErrCodeStorageWrite) {
		t.Errorf("Expected wrapped STORAGE_WRITE, got %v", err)
	}
}

func TestRetryer_ContextCancellation(t *testing.T) {
	config := fastConfig()
	config.MaxAttempts = 10
	config.InitialDelay = 100 * time.Millisecond
	config.MaxDelay = time.Second
	retryer := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := retryer.DoWithContext(ctx, func(ctx context.Context) error {
		attempts++
		return errors.NewError(errors.ErrCodeStorageWrite, "write failed")
	})

	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts >= 10 {
		t.Errorf("Expected fewer than 10 attempts due to cancellation, got %d", attempts)
	}
}

func TestRetryer_ContextErrorNotRetried(t *testing.T) {
	retryer := New(fastConfig())

	attempts := 0
	_ = attempt(retryer, func() error {
		attempts++
		return context.DeadlineExceeded
	})
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_ExponentialBackoff(t *testing.T) {
	config := DefaultConfig()
	config.InitialDelay = 100 * time.Millisecond
	config.MaxDelay = 10 * time.Second
	config.Jitter = false
	retryer := New(config)

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := retryer.calculateDelay(i + 1); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}

	config.MaxDelay = 150 * time.Millisecond
	capped := New(config)
	if got := capped.calculateDelay(5); got != 150*time.Millisecond {
		t.Errorf("capped delay = %v, want 150ms", got)
	}
}

func TestRetryer_JitterBounds(t *testing.T) {
	config := DefaultConfig()
	config.InitialDelay = 100 * time.Millisecond
	retryer := New(config)

	for i := 0; i < 50; i++ {
		d := retryer.calculateDelay(1)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±20%%", d)
		}
	}
}

func TestRetryer_OnRetryCallback(t *testing.T) {
	var calls []int
	config := fastConfig()
	config.OnRetry = func(n int, err error, delay time.Duration) {
		calls = append(calls, n)
	}
	retryer := New(config)

	_ = attempt(retryer, func() error {
		return errors.NewError(errors.ErrCodeStorageWrite, "write failed")
	})

	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("Expected OnRetry for attempts [1 2], got %v", calls)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{})
	if r.config.MaxAttempts != 3 {
		t.Errorf("default attempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("default multiplier = %v, want 2", r.config.Multiplier)
	}
}
