package keylock

import (
	"context"
	"sync"
)

// Locker binds a single key to a context-and-error locking API, for code
// written against interfaces in the shape of sync.Locker or database lock
// clients. All Lockers created from the same Mutex for equal keys contend
// with each other and with direct Enter/TryEnter calls on that Mutex.
type Locker struct {
	m   *Mutex
	key any

	mu     sync.Mutex
	locked bool
}

// NewLocker creates a Locker bound to key on this Mutex.
func (m *Mutex) NewLocker(key any) *Locker {
	return &Locker{
		m:   m,
		key: key,
	}
}

// Lock acquires the lock, blocking until it's available or ctx is
// cancelled. Calling Lock while this Locker already holds the lock
// returns immediately.
func (l *Locker) Lock(ctx context.Context) error {
	l.mu.Lock()
	if l.locked {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	if !l.m.Enter(ctx, l.key) {
		return ctx.Err()
	}

	l.mu.Lock()
	l.locked = true
	l.mu.Unlock()
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (l *Locker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return true, nil
	}

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if l.m.TryEnter(l.key) {
		l.locked = true
		return true, nil
	}
	return false, nil
}

// Unlock releases the lock. Unlock on a Locker that holds nothing is a
// no-op.
func (l *Locker) Unlock(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked {
		return nil
	}
	l.m.Leave(l.key)
	l.locked = false
	return nil
}
