package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned by a Backend when the key holds no value.
var ErrNotFound = errors.New("session key not found")

// Backend is the persistent key/value store that holds serialised identities.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key returns the storage key for the identity issued by authority to
// clientID. Authority and client are both part of the key so tenants never
// collide.
func Key(authority string, clientID string) string {
	return "user:" + strings.TrimRight(strings.TrimSpace(authority), "/") + ":" + strings.TrimSpace(clientID)
}

// FallbackKey is the secondary key used when the primary backend rejects a
// write.
func FallbackKey(authority string, clientID string) string {
	return "seller-center.refreshed_user:" + strings.TrimRight(strings.TrimSpace(authority), "/") + ":" + strings.TrimSpace(clientID)
}

// MemoryBackend keeps values in process memory.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: map[string][]byte{}}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
