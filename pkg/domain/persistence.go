package domain

import "context"

// StateBackend is a minimal key-value abstraction over durable backends.
// The whole Store is persisted as one payload under one well-known key.
type StateBackend interface {
	// Get returns the payload stored under key. ok is false when the key
	// is absent.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	// Put replaces the payload stored under key.
	Put(ctx context.Context, key string, payload []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
