// cartservice/kvstore/local_kvstore.go

package kvstore

import (
	"context"
	"sync"
)

// LocalKVStore keeps values in process memory. Nothing survives a restart, so it
// backs tests and throwaway runs.
type LocalKVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewLocalKVStore constructor
func NewLocalKVStore() *LocalKVStore {
	return &LocalKVStore{
		values: make(map[string]string),
	}
}

// Initialize does nothing in this implementation.
func (l *LocalKVStore) Initialize(ctx context.Context) error {
	return nil
}

// Get returns the value stored under key.
func (l *LocalKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	value, ok := l.values[key]
	return value, ok, nil
}

// Set stores value under key, replacing any previous value.
func (l *LocalKVStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.values[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (l *LocalKVStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.values, key)
	return nil
}

// Ping is a health check that always returns true.
func (l *LocalKVStore) Ping(ctx context.Context) bool {
	return true
}

// Close is a no-op.
func (l *LocalKVStore) Close() error {
	return nil
}
