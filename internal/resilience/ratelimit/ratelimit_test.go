package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_Acquire(t *testing.T) {
	t.Run("TC-1: first call is admitted immediately", func(t *testing.T) {
		// Arrange
		limiter := New(Config{
			Intervals: map[string]time.Duration{"github_search": 500 * time.Millisecond},
		})

		// Act
		start := time.Now()
		err := limiter.Acquire(context.Background(), "github_search")
		elapsed := time.Since(start)

		// Assert
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if elapsed > 100*time.Millisecond {
			t.Errorf("expected immediate admission, took %v", elapsed)
		}
	})

	t.Run("TC-2: sequential calls are spaced by the interval", func(t *testing.T) {
		// Arrange
		limiter := New(Config{
			Intervals: map[string]time.Duration{"crm": 50 * time.Millisecond},
		})
		ctx := context.Background()

		// Act
		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := limiter.Acquire(ctx, "crm"); err != nil {
				t.Fatalf("acquire %d failed: %v", i+1, err)
			}
		}
		elapsed := time.Since(start)

		// Assert - second and third admissions each wait 50ms
		if elapsed < 100*time.Millisecond {
			t.Errorf("expected >=100ms for 3 spaced calls, got %v", elapsed)
		}
	})

	t.Run("TC-3: ten concurrent calls serialize across >=900ms", func(t *testing.T) {
		// Arrange
		limiter := New(Config{
			Intervals: map[string]time.Duration{"github_search": 100 * time.Millisecond},
		})
		ctx := context.Background()

		// Act
		start := time.Now()
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- limiter.Acquire(ctx, "github_search")
			}()
		}
		wg.Wait()
		elapsed := time.Since(start)
		close(errs)

		// Assert - tenth admission comes at least 9 intervals after the first
		for err := range errs {
			if err != nil {
				t.Fatalf("acquire failed: %v", err)
			}
		}
		if elapsed < 900*time.Millisecond {
			t.Errorf("expected tenth admission >=900ms after the first, got %v", elapsed)
		}
	})

	t.Run("TC-4: dependencies do not block each other", func(t *testing.T) {
		// Arrange
		limiter := New(Config{
			Intervals: map[string]time.Duration{
				"github_search": 300 * time.Millisecond,
				"crm":           300 * time.Millisecond,
			},
		})
		ctx := context.Background()

		// Act - exhaust github_search's slot, then acquire crm
		if err := limiter.Acquire(ctx, "github_search"); err != nil {
			t.Fatalf("github_search acquire failed: %v", err)
		}
		start := time.Now()
		err := limiter.Acquire(ctx, "crm")
		elapsed := time.Since(start)

		// Assert
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if elapsed > 100*time.Millisecond {
			t.Errorf("expected crm to be independent of github_search, waited %v", elapsed)
		}
	})

	t.Run("TC-5: context cancellation abandons the wait", func(t *testing.T) {
		// Arrange
		limiter := New(Config{
			Intervals: map[string]time.Duration{"outreach": time.Hour},
		})
		ctx := context.Background()

		if err := limiter.Acquire(ctx, "outreach"); err != nil {
			t.Fatalf("first acquire failed: %v", err)
		}

		// Act - second acquire cannot be admitted within the deadline
		ctxWithTimeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := limiter.Acquire(ctxWithTimeout, "outreach")
		elapsed := time.Since(start)

		// Assert
		if err == nil {
			t.Error("expected an error when the deadline cannot be met")
		}
		if elapsed > 500*time.Millisecond {
			t.Errorf("expected a prompt return, waited %v", elapsed)
		}
	})
}

func TestLimiter_UnconfiguredDependency(t *testing.T) {
	limiter := New(Config{
		Intervals: map[string]time.Duration{"github_search": time.Hour},
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := limiter.Acquire(ctx, "unlisted"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected unthrottled passthrough, took %v", elapsed)
	}
}

func TestLimiter_DefaultInterval(t *testing.T) {
	limiter := New(Config{
		DefaultInterval: 80 * time.Millisecond,
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx, "anything"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("expected default interval to apply, took only %v", elapsed)
	}
}

func TestLimiter_ExplicitZeroOverridesDefault(t *testing.T) {
	limiter := New(Config{
		Intervals:       map[string]time.Duration{"bulk_export": 0},
		DefaultInterval: time.Hour,
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx, "bulk_export"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected explicit zero entry to stay unthrottled, took %v", elapsed)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := New(Config{
		Intervals: map[string]time.Duration{"github_search": time.Hour},
		Disabled:  true,
	})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Acquire(ctx, "github_search"); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected kill-switch to bypass waiting, took %v", elapsed)
	}
}

func TestLimiter_Interval(t *testing.T) {
	limiter := New(Config{
		Intervals:       map[string]time.Duration{"crm": 250 * time.Millisecond},
		DefaultInterval: time.Second,
	})

	if got := limiter.Interval("crm"); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	if got := limiter.Interval("unlisted"); got != time.Second {
		t.Errorf("expected default 1s, got %v", got)
	}
}
