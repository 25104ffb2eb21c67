package keylock

import "context"

// Default is the shared instance used by the package-level functions.
// Code that wants an isolated registry should create its own with New.
var Default = New()

// Enter acquires the lock for key on the Default instance.
func Enter(ctx context.Context, key any) bool {
	return Default.Enter(ctx, key)
}

// TryEnter attempts a non-blocking acquisition on the Default instance.
func TryEnter(key any) bool {
	return Default.TryEnter(key)
}

// WaitLeave observes the next release of key on the Default instance.
func WaitLeave(ctx context.Context, key any) bool {
	return Default.WaitLeave(ctx, key)
}

// IsLocked reports whether key is held on the Default instance.
func IsLocked(key any) bool {
	return Default.IsLocked(key)
}

// Leave releases the lock for key on the Default instance.
func Leave(key any) {
	Default.Leave(key)
}

// Do runs fn under the lock for key on the Default instance.
func Do(ctx context.Context, key any, fn func()) bool {
	return Default.Do(ctx, key, fn)
}
