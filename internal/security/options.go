// Package security holds the request throttling and login lockout state
// shared across requests. Both are built once per process and injected.
package security

import "time"

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

const defaultSweepInterval = time.Minute

type options struct {
	clock         Clock
	sweepInterval time.Duration
}

type Option func(*options)

// WithClock overrides time.Now.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSweepInterval sets how often expired records are dropped. Zero
// disables the background sweeper; Sweep can still be called directly.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, sweepInterval: defaultSweepInterval}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// sweeper runs fn on a ticker until stop is closed.
func startSweeper(interval time.Duration, stop <-chan struct{}, fn func()) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
}
