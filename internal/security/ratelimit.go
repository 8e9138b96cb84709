package security

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 100
	DefaultWindow      = 15 * time.Minute
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied caller should wait, rounded up to a whole
// second and never below one.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}

// Store keeps fixed-window counters. Hit must check and increment in one
// atomic step.
type Store interface {
	Hit(ctx context.Context, key string, max int, window time.Duration) (Decision, error)
	Peek(ctx context.Context, key string, max int) (Decision, error)
}

// RateLimiter applies a fixed window of max requests per identifier.
type RateLimiter struct {
	store  Store
	max    int
	window time.Duration
}

func NewRateLimiter(store Store, max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{store: store, max: max, window: window}
}

// Allow records one request for id. The first request of a window, and
// every request while the count is below the limit, is allowed. Denied
// requests do not extend or consume the window.
func (l *RateLimiter) Allow(ctx context.Context, id string) (Decision, error) {
	return l.store.Hit(ctx, id, l.max, l.window)
}

// Remaining reports how many requests id has left without consuming one.
func (l *RateLimiter) Remaining(ctx context.Context, id string) (int, error) {
	d, err := l.store.Peek(ctx, id, l.max)
	if err != nil {
		return 0, err
	}
	return d.Remaining, nil
}

func (l *RateLimiter) Limit() int {
	return l.max
}

func (l *RateLimiter) Window() time.Duration {
	return l.window
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     Clock

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     o.clock,
		stop:    make(chan struct{}),
	}
	startSweeper(o.sweepInterval, s.stop, s.Sweep)
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, max int, d time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(d)}
		s.windows[key] = w
		return Decision{Allowed: true, Limit: max, Remaining: max - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= max {
		return Decision{Allowed: false, Limit: max, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Decision{Allowed: true, Limit: max, Remaining: max - w.count, ResetAt: w.resetAt}, nil
}

func (s *MemoryStore) Peek(_ context.Context, key string, max int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		return Decision{Allowed: true, Limit: max, Remaining: max, ResetAt: now}, nil
	}

	remaining := max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: remaining > 0, Limit: max, Remaining: remaining, ResetAt: w.resetAt}, nil
}

// Sweep drops windows that have already reset.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
		}
	}
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
