package keylock

import "context"

// Do acquires the lock for key, runs fn, and releases the lock on every
// exit path, including a panic in fn. It returns true once fn has run
// under the lock, or false without running fn when ctx expires first.
func (m *Mutex) Do(ctx context.Context, key any, fn func()) bool {
	if !m.Enter(ctx, key) {
		return false
	}
	defer m.Leave(key)

	fn()
	return true
}
