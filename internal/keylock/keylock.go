// Package keylock serializes work on a single key, such as a username under
// registration.
package keylock

import "context"

// Locker acquires a lock for key. The returned unlock func must be called
// exactly once when the holder is done.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Noop is a Locker that never blocks. It is used when the store's unique
// constraints are the only guard.
type Noop struct{}

func (Noop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
