package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// BlobStore defines the interface for opaque byte storage addressed by
// relative locator strings (e.g. "images/<uuid>.jpg").
type BlobStore interface {
	// Put stores the bytes under key and returns the locator.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// Open resolves a locator back to readable bytes.
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	// DeleteBestEffort removes a blob; it never fails, already-absent
	// locators included.
	DeleteBestEffort(ctx context.Context, locator string)
}

// MemoryStore is an in-process BlobStore used when object storage is not
// configured, and by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read blob body: %w", err)
	}

	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()

	return key, nil
}

func (s *MemoryStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[locator]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blob %q not found", locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) DeleteBestEffort(ctx context.Context, locator string) {
	s.mu.Lock()
	delete(s.blobs, locator)
	s.mu.Unlock()
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
