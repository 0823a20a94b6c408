package gate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"decent-ci/src/logger"
	"decent-ci/src/provider"
)

type fixedRates provider.RateLimit

func (f fixedRates) RateLimit() provider.RateLimit { return provider.RateLimit(f) }

func newTestGate(now time.Time) (*Gate, *[]time.Duration) {
	g := New(nil, logger.NewSilentLogger())
	g.now = func() time.Time { return now }
	var slept []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return g, &slept
}

func TestCall_Success(t *testing.T) {
	g, slept := newTestGate(time.Now())

	calls := 0
	err := g.Call(context.Background(), "list", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 || len(*slept) != 0 {
		t.Errorf("Call() err=%v calls=%d slept=%v", err, calls, *slept)
	}
}

func TestCall_RetriesRateLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g, slept := newTestGate(now)

	reset := now.Add(10 * time.Minute)
	calls := 0
	err := g.Call(context.Background(), "list", func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("list: %w", &provider.RateLimitError{RateLimit: provider.RateLimit{Limit: 5000, Used: 5000, Reset: reset}})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := 10*time.Minute + DefaultBuffer
	if len(*slept) != 2 || (*slept)[0] != want {
		t.Errorf("slept = %v, want two waits of %s", *slept, want)
	}
}

func TestCall_GivesUpAfterMaxRetries(t *testing.T) {
	g, slept := newTestGate(time.Now())

	calls := 0
	err := g.Call(context.Background(), "list", func(context.Context) error {
		calls++
		return &provider.RateLimitError{}
	})
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Errorf("Call() error = %v, want rate limit error", err)
	}
	if calls != DefaultMaxRetries+1 || len(*slept) != DefaultMaxRetries {
		t.Errorf("calls = %d, sleeps = %d", calls, len(*slept))
	}
}

func TestCall_OtherErrorsAreNotRetried(t *testing.T) {
	g, slept := newTestGate(time.Now())

	calls := 0
	boom := errors.New("boom")
	err := g.Call(context.Background(), "put", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 || len(*slept) != 0 {
		t.Errorf("Call() err=%v calls=%d slept=%v", err, calls, *slept)
	}
}

func TestCall_ContextCancelledDuringWait(t *testing.T) {
	g := New(nil, logger.NewSilentLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Call(ctx, "list", func(context.Context) error {
		return &provider.RateLimitError{RateLimit: provider.RateLimit{Reset: time.Now().Add(time.Hour)}}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	g, _ := newTestGate(time.Now())

	got, err := Do(context.Background(), g, "get", func(context.Context) (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("Do() = %d, %v", got, err)
	}
}

func TestWait(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g, _ := newTestGate(now)
	g.Buffer = 5 * time.Second

	tests := []struct {
		name  string
		reset time.Time
		want  time.Duration
	}{
		{name: "future reset", reset: now.Add(90 * time.Second), want: 95 * time.Second},
		{name: "reset passed", reset: now.Add(-time.Minute), want: 0},
		{name: "unknown reset", want: 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Wait(provider.RateLimit{Reset: tt.reset}); got != tt.want {
				t.Errorf("Wait() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBurnRate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	g, _ := newTestGate(now)
	g.rates = fixedRates{}

	// Window began 20 minutes ago.
	rate := provider.RateLimit{Used: 1000, Reset: now.Add(40 * time.Minute)}
	if got := g.BurnRate(rate); got != 50 {
		t.Errorf("BurnRate() = %v, want 50", got)
	}
	if got := g.BurnRate(provider.RateLimit{}); got != 0 {
		t.Errorf("BurnRate(empty) = %v, want 0", got)
	}
}
