// Package persistence saves and loads whole Store snapshots as one JSON
// document on a domain.StateBackend.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"linkbox/pkg/domain"
)

// DefaultKey is the well-known key the document is stored under.
const DefaultKey = "linkbox-store"

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
	// ErrCorruptSnapshot is wrapped by Load when the payload cannot be
	// decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// Adapter binds a backend, a key and the seed used by Reset.
type Adapter struct {
	backend domain.StateBackend
	key     string
	seed    func() domain.Store
}

// NewAdapter returns an adapter storing under key (DefaultKey when empty).
// seed builds the store written by Reset; nil seeds an empty store.
func NewAdapter(backend domain.StateBackend, key string, seed func() domain.Store) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if seed == nil {
		seed = domain.NewStore
	}
	return &Adapter{backend: backend, key: key, seed: seed}
}

// Key returns the storage key.
func (a *Adapter) Key() string { return a.key }

// Load reads and decodes the stored snapshot.
func (a *Adapter) Load(ctx context.Context) (domain.Store, error) {
	payload, ok, err := a.backend.Get(ctx, a.key)
	if err != nil {
		return domain.Store{}, fmt.Errorf("read %s: %w", a.key, err)
	}
	if !ok || len(payload) == 0 {
		return domain.Store{}, ErrNoSnapshot
	}
	return Decode(payload)
}

// Save encodes s and replaces the stored snapshot.
func (a *Adapter) Save(ctx context.Context, s domain.Store) error {
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	if err := a.backend.Put(ctx, a.key, payload); err != nil {
		return fmt.Errorf("write %s: %w", a.key, err)
	}
	return nil
}

// Reset discards the stored snapshot and saves a fresh seed.
func (a *Adapter) Reset(ctx context.Context) (domain.Store, error) {
	if err := a.backend.Delete(ctx, a.key); err != nil {
		return domain.Store{}, fmt.Errorf("delete %s: %w", a.key, err)
	}
	s := a.seed().Indexed()
	if err := a.Save(ctx, s); err != nil {
		return domain.Store{}, err
	}
	return s, nil
}

// Close releases the backend.
func (a *Adapter) Close() error { return a.backend.Close() }
