// Package blobstate stores StateBackend payloads as objects in a blob.Store.
package blobstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"linkbox/internal/blob"
	"linkbox/pkg/domain"
)

var _ domain.StateBackend = (*Store)(nil)

const contentType = "application/json"

// Store maps each key to one object under prefix.
type Store struct {
	blobs  blob.Store
	prefix string
}

// New wraps blobs. Keys are stored as prefix/key; an empty prefix means
// "state".
func New(blobs blob.Store, prefix string) *Store {
	if prefix == "" {
		prefix = "state"
	}
	return &Store{blobs: blobs, prefix: prefix}
}

func (s *Store) objectKey(key string) string { return path.Join(s.prefix, key) }

// Get implements domain.StateBackend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_, rc, err := s.blobs.Get(ctx, s.objectKey(key))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return payload, true, nil
}

// Put implements domain.StateBackend.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	if _, err := s.blobs.Put(ctx, s.objectKey(key), bytes.NewReader(payload), blob.PutOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete implements domain.StateBackend.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.blobs.Delete(ctx, s.objectKey(key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close implements domain.StateBackend.
func (s *Store) Close() error { return nil }
