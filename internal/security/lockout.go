package security

import (
	"sync"
	"time"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

type attempts struct {
	count       int
	lastFailure time.Time
	lockedUntil time.Time
}

// Lockout counts consecutive failed logins per identifier and locks the
// identifier once the maximum is reached.
type Lockout struct {
	mu       sync.Mutex
	records  map[string]*attempts
	max      int
	duration time.Duration
	now      Clock

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLockout(maxAttempts int, duration time.Duration, opts ...Option) *Lockout {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}

	o := buildOptions(opts)
	l := &Lockout{
		records:  make(map[string]*attempts),
		max:      maxAttempts,
		duration: duration,
		now:      o.clock,
		stop:     make(chan struct{}),
	}
	startSweeper(o.sweepInterval, l.stop, l.Sweep)
	return l
}

// RecordFailedAttempt counts a failure and reports whether id is now locked.
func (l *Lockout) RecordFailedAttempt(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[id]
	if !ok {
		rec = &attempts{}
		l.records[id] = rec
	}
	rec.count++
	rec.lastFailure = now
	if rec.count >= l.max {
		rec.lockedUntil = now.Add(l.duration)
	}
	return !rec.lockedUntil.IsZero() && now.Before(rec.lockedUntil)
}

// IsLocked reports whether id is locked. An expired lock is cleared along
// with its failure count.
func (l *Lockout) IsLocked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok || rec.lockedUntil.IsZero() {
		return false
	}
	if !l.now().Before(rec.lockedUntil) {
		delete(l.records, id)
		return false
	}
	return true
}

// LockedUntil returns the lock expiry, or the zero time when id is not locked.
func (l *Lockout) LockedUntil(id string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok || !l.now().Before(rec.lockedUntil) {
		return time.Time{}
	}
	return rec.lockedUntil
}

// ClearFailedAttempts forgets id, typically after a successful login.
func (l *Lockout) ClearFailedAttempts(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, id)
}

// RemainingAttempts is how many more failures id can make before locking.
func (l *Lockout) RemainingAttempts(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return l.max
	}
	if remaining := l.max - rec.count; remaining > 0 {
		return remaining
	}
	return 0
}

// Sweep drops expired locks and failure counts that have been idle for a
// full lockout period.
func (l *Lockout) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, rec := range l.records {
		if !rec.lockedUntil.IsZero() {
			if !now.Before(rec.lockedUntil) {
				delete(l.records, id)
			}
			continue
		}
		if now.Sub(rec.lastFailure) >= l.duration {
			delete(l.records, id)
		}
	}
}

func (l *Lockout) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Lockout) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	return nil
}
