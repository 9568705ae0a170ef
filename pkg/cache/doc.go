// Package cache keeps a timestamped local snapshot of the roster document and
// answers whether that snapshot is still fresh.
//
// Read reports every non-hit as an error value (ErrMiss, ErrExpired,
// ErrCorrupt) so the caller's "treat as a miss" policy is an explicit branch.
// Write failures come back as ErrWrite; the snapshot is an optimization and
// callers continue without it.
package cache
