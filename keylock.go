// Package keylock provides mutual exclusion keyed by arbitrary values.
//
// Any comparable value can serve as a lock: two callers contend iff their
// keys compare equal with ==, so pointer keys coordinate on object identity
// without a registry the caller has to manage. Locks are created on first
// acquisition and removed on release; a free key occupies no memory.
package keylock

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/exp/slices"
)

// Mutex is a registry of per-key locks. The zero value is not usable;
// create instances with New. Independent instances have disjoint
// registries and never contend, even for equal keys.
//
// Keys must be comparable; passing a non-comparable key (slice, map,
// function) panics. Pointer keys are compared by identity, value keys by
// equality.
type Mutex struct {
	mu    sync.Mutex
	locks map[any]*entry
}

// entry exists iff its key is currently held.
type entry struct {
	// released is closed exactly once, by Leave. Closing broadcasts to
	// every WaitLeave observer and to nobody else.
	released chan struct{}

	// queue holds pending Enter callers in arrival order. Leave hands the
	// lock to the head; the remainder migrates to the successor entry.
	queue []*waiter
}

type waiter struct {
	ready   chan struct{}
	granted bool
}

// New creates a new keyed mutex with an empty registry.
func New() *Mutex {
	return &Mutex{
		locks: make(map[any]*entry),
	}
}

// Enter acquires the lock for key, blocking while another caller holds it.
// It returns true once the lock is held. If ctx expires or is cancelled
// while waiting, Enter gives up its place in line and returns false; the
// registry is left untouched and the caller must Enter again if it still
// wants the lock.
//
// Acquisition of a free key is immediate and ignores ctx. Waiters are
// served in arrival order.
func (m *Mutex) Enter(ctx context.Context, key any) bool {
	m.mu.Lock()
	e, held := m.locks[key]
	if !held {
		m.locks[key] = &entry{released: make(chan struct{})}
		m.mu.Unlock()
		return true
	}

	w := &waiter{ready: make(chan struct{})}
	e.queue = append(e.queue, w)
	m.mu.Unlock()

	log := logr.FromContextOrDiscard(ctx)
	log.V(1).Info("in keylock Enter: key is held, waiting for release")

	select {
	case <-w.ready:
		return true
	case <-ctx.Done():
		m.mu.Lock()
		defer m.mu.Unlock()
		if w.granted {
			// The release landed before the expiry was processed.
			return true
		}
		// The queue may have migrated to a successor entry since we
		// suspended; remove ourselves from whichever entry owns the key now.
		if cur, ok := m.locks[key]; ok {
			if i := slices.Index(cur.queue, w); i >= 0 {
				cur.queue = slices.Delete(cur.queue, i, i+1)
			}
		}
		log.V(1).Info("in keylock Enter: gave up waiting", "cause", ctx.Err())
		return false
	}
}

// TryEnter acquires the lock for key iff it is free at the instant of the
// call. It returns true on acquisition and false, with no state change,
// when the key is already held. TryEnter never blocks.
func (m *Mutex) TryEnter(key any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.locks[key]; held {
		return false
	}
	m.locks[key] = &entry{released: make(chan struct{})}
	return true
}

// WaitLeave waits for the next release of key without taking the lock.
// If key is free it returns true immediately. Otherwise it blocks until
// the current holder calls Leave (true) or ctx expires (false). On return
// the key may already be held again by someone else; WaitLeave is for
// observation, not exclusion.
func (m *Mutex) WaitLeave(ctx context.Context, key any) bool {
	m.mu.Lock()
	e, held := m.locks[key]
	if !held {
		m.mu.Unlock()
		return true
	}
	released := e.released
	m.mu.Unlock()

	logr.FromContextOrDiscard(ctx).V(1).Info("in keylock WaitLeave: key is held, observing release")

	select {
	case <-released:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsLocked reports whether key is currently held. The answer may be stale
// the instant it is returned; do not use it to decide whether Enter would
// block.
func (m *Mutex) IsLocked(key any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, held := m.locks[key]
	return held
}

// Leave releases the lock for key. Every WaitLeave observer is woken, and
// the lock is handed to the earliest waiting Enter caller, if any; with no
// waiters the key becomes free. Leave on a free key is a no-op, so release
// paths never need a held-check.
func (m *Mutex) Leave(key any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, held := m.locks[key]
	if !held {
		return
	}

	if len(e.queue) > 0 {
		next := e.queue[0]
		m.locks[key] = &entry{
			released: make(chan struct{}),
			queue:    e.queue[1:],
		}
		next.granted = true
		close(next.ready)
	} else {
		delete(m.locks, key)
	}
	close(e.released)
}
