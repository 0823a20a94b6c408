// Package gate wraps remote platform calls with rate-limit backoff.
package gate

import (
	"context"
	"errors"
	"time"

	"decent-ci/src/logger"
	"decent-ci/src/provider"
)

const (
	// DefaultMaxRetries is how often a rate-limited call is retried.
	DefaultMaxRetries = 2

	// DefaultBuffer is added to every computed wait.
	DefaultBuffer = 30 * time.Second

	// DefaultWindow is the length of GitHub's rate-limit window.
	DefaultWindow = time.Hour
)

// RateSource reports the quota seen on the latest response.
type RateSource interface {
	RateLimit() provider.RateLimit
}

// Gate delays and retries calls refused for exceeding the rate limit.
type Gate struct {
	rates RateSource
	log   logger.Logger

	MaxRetries int
	Buffer     time.Duration
	Window     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a gate. rates may be nil when no quota information exists.
func New(rates RateSource, log logger.Logger) *Gate {
	return &Gate{
		rates:      rates,
		log:        logger.OrDefault(log),
		MaxRetries: DefaultMaxRetries,
		Buffer:     DefaultBuffer,
		Window:     DefaultWindow,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Call runs fn, retrying after a rate-limit refusal up to MaxRetries times.
func (g *Gate) Call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)

		var rle *provider.RateLimitError
		limited := errors.As(err, &rle)

		rate := g.current()
		if limited {
			rate = rle.RateLimit
		}
		g.logRate(name, rate)

		if err == nil {
			return nil
		}
		if !limited || attempt >= g.MaxRetries {
			return err
		}

		wait := g.Wait(rate)
		g.log.Warn("%s: rate limited, retrying in %s (attempt %d of %d)", name, wait.Round(time.Second), attempt+1, g.MaxRetries)
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Do is Call for functions returning a value.
func Do[T any](ctx context.Context, g *Gate, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Call(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Wait returns how long to sleep before the quota is restored: the time
// from the reconstructed window start to reset, less the time already spent
// in the window, plus Buffer. Never negative.
func (g *Gate) Wait(rate provider.RateLimit) time.Duration {
	if rate.Reset.IsZero() {
		return g.Buffer
	}
	windowStart := rate.Reset.Add(-g.Window)
	elapsed := g.now().Sub(windowStart)
	wait := rate.Reset.Sub(windowStart) - elapsed + g.Buffer
	if wait < 0 {
		return 0
	}
	return wait
}

// BurnRate is the number of requests used per minute since the window
// began.
func (g *Gate) BurnRate(rate provider.RateLimit) float64 {
	if rate.Reset.IsZero() {
		return 0
	}
	minutes := g.now().Sub(rate.Reset.Add(-g.Window)).Minutes()
	if minutes < 1 {
		minutes = 1
	}
	return float64(rate.Used) / minutes
}

func (g *Gate) current() provider.RateLimit {
	if g.rates == nil {
		return provider.RateLimit{}
	}
	return g.rates.RateLimit()
}

func (g *Gate) logRate(name string, rate provider.RateLimit) {
	if rate.Limit == 0 {
		g.log.Debug("%s: no rate limit information", name)
		return
	}
	g.log.Debug("%s: rate limit %d, remaining %d, reset %s, burn %.1f/min",
		name, rate.Limit, rate.Remaining, rate.Reset.Format(time.RFC3339), g.BurnRate(rate))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
